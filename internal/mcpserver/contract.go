package mcpserver

// JournalFormatContract describes a journal entry for LLM consumers that
// read or create entries.
const JournalFormatContract = `# Reverie Journal Format

Each entry in the dream journal is a JSON object:

` + "```" + `json
{
  "id": "3f0c9a4e-8d1b-4a51-9f3e-6f1c2b7d9a10",
  "title": "Flying over the harbour",
  "content": "I was above the old port at night...",
  "date": "2024-03-10",
  "time": "07:45 AM",
  "audioRef": "audio/9b2f5c1e.webm"
}
` + "```" + `

## Rules

1. **title** and **content** are required and must not be blank. Surrounding
   whitespace is trimmed.
2. **id**, **date** and **time** are assigned by the journal when an entry is
   saved. Do not invent them.
3. **date** is the local calendar day as ` + "`" + `YYYY-MM-DD` + "`" + `.
   **time** is the 12-hour clock time as ` + "`" + `hh:mm AM` + "`" + `.
4. **audioRef** is optional. It must be a reference returned by
   ` + "`" + `upload_audio` + "`" + ` (always ` + "`" + `audio/<name>` + "`" + `). Unknown references are rejected.
5. Entries are listed newest first. Entries saved on the same day are
   grouped under that day.
6. Entries cannot be edited. Delete and re-create instead.

## Date filters

` + "`" + `list_dreams` + "`" + ` and ` + "`" + `dreams_by_day` + "`" + ` accept ` + "`" + `since` + "`" + ` and ` + "`" + `until` + "`" + `. Both are inclusive
and take either ` + "`" + `YYYY-MM-DD` + "`" + ` or a phrase such as "yesterday", "last week" or
"3 days ago".
`
