package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/sse"
	"github.com/starford/reverie/internal/storage"
	"github.com/starford/reverie/internal/testutil"
)

type fakeEvents struct {
	mu    sync.Mutex
	kinds []string
}

func (f *fakeEvents) PublishJournalEvent(kind string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func (f *fakeEvents) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kinds...)
}

type fakePending struct {
	mu  sync.Mutex
	ref string
	// swap, when set, replaces the pending reference right after the first
	// Pending call returns, the way a recording finishing mid-save would.
	swap string
}

func (p *fakePending) Pending() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := p.ref
	if p.swap != "" {
		p.ref, p.swap = p.swap, ""
	}
	return ref
}

func (p *fakePending) ClaimPending(ref string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ref == "" || p.ref != ref {
		return false
	}
	p.ref = ""
	return true
}

func (p *fakePending) ReleasePending(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ref == "" {
		p.ref = ref
	}
}

func (p *fakePending) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

type env struct {
	svc     *Service
	files   *storage.FS
	events  *fakeEvents
	pending *fakePending
}

func newEnv(t *testing.T, withDB bool) *env {
	t.Helper()
	_, files := testutil.TestJournal(t)
	store := testutil.TestStore(t, files)
	e := &env{files: files, events: &fakeEvents{}, pending: &fakePending{}}
	opts := []Option{WithEvents(e.events), WithRecorder(e.pending), WithLogger(testutil.Logger())}
	if withDB {
		e.svc = NewService(store, testutil.TestDB(t), files, opts...)
	} else {
		e.svc = NewService(store, nil, files, opts...)
	}
	return e
}

func TestCreateIndexesAndPublishes(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	d, err := e.svc.Create(ctx, CreateInput{Title: "Clocktower", Content: "every bell rang at once"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Date != "2024-03-10" || d.Time != "07:45 AM" {
		t.Errorf("stamp = %s %s", d.Date, d.Time)
	}
	res, err := e.svc.Search(ctx, "bell", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ID != d.ID {
		t.Errorf("search = %+v", res)
	}
	if kinds := e.events.got(); len(kinds) != 1 || kinds[0] != sse.EventDreamCreated {
		t.Errorf("events = %v", kinds)
	}
}

func TestCreateValidationPublishesNothing(t *testing.T) {
	e := newEnv(t, true)
	_, err := e.svc.Create(context.Background(), CreateInput{Title: " ", Content: "x"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(e.events.got()) != 0 {
		t.Errorf("events = %v, want none", e.events.got())
	}
}

func TestCreateUsesPendingRecording(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	_ = e.files.Write("audio/take.wav", testutil.WAV(10))
	e.pending.ref = "audio/take.wav"

	d, err := e.svc.Create(ctx, CreateInput{Title: "Voice", Content: "typed after recording", UsePending: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.AudioRef != "audio/take.wav" {
		t.Errorf("audioRef = %q", d.AudioRef)
	}
	if e.pending.current() != "" {
		t.Error("pending recording not claimed")
	}

	d, _ = e.svc.Create(ctx, CreateInput{Title: "Plain", Content: "no audio", UsePending: true})
	if d.AudioRef != "" {
		t.Errorf("audioRef = %q, want empty once claimed", d.AudioRef)
	}
}

func TestCreatePendingReplacedMidSave(t *testing.T) {
	e := newEnv(t, false)
	_ = e.files.Write("audio/take.wav", testutil.WAV(10))
	_ = e.files.Write("audio/newer.wav", testutil.WAV(10))
	e.pending.ref = "audio/take.wav"
	e.pending.swap = "audio/newer.wav"

	d, err := e.svc.Create(context.Background(), CreateInput{Title: "Voice", Content: "c", UsePending: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.AudioRef != "audio/newer.wav" {
		t.Errorf("audioRef = %q, want the recording that replaced the old one", d.AudioRef)
	}
	if got := e.pending.current(); got != "" {
		t.Errorf("pending = %q, want cleared", got)
	}
}

func TestCreatePendingClaimedOnce(t *testing.T) {
	e := newEnv(t, false)
	_ = e.files.Write("audio/take.wav", testutil.WAV(10))
	e.pending.ref = "audio/take.wav"

	const n = 8
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := e.svc.Create(context.Background(), CreateInput{Title: "t", Content: "c", UsePending: true})
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			refs <- d.AudioRef
		}()
	}
	wg.Wait()
	close(refs)

	attached := 0
	for ref := range refs {
		if ref != "" {
			attached++
		}
	}
	if attached != 1 {
		t.Errorf("recording attached to %d entries, want 1", attached)
	}
}

func TestCreateFailureKeepsPending(t *testing.T) {
	e := newEnv(t, false)
	_ = e.files.Write("audio/take.wav", testutil.WAV(10))
	e.pending.ref = "audio/take.wav"

	_, err := e.svc.Create(context.Background(), CreateInput{Title: " ", Content: "c", UsePending: true})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := e.pending.current(); got != "audio/take.wav" {
		t.Errorf("pending = %q, want it kept for the retry", got)
	}
}

func TestCreateRejectsUnknownAudio(t *testing.T) {
	e := newEnv(t, false)
	for _, ref := range []string{"audio/missing.wav", "../secrets.wav", "notes/x.wav"} {
		_, err := e.svc.Create(context.Background(), CreateInput{Title: "t", Content: "c", AudioRef: ref})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("ref %q: err = %v, want ErrValidation", ref, err)
		}
	}
}

func TestDelete(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	d, _ := e.svc.Create(ctx, CreateInput{Title: "Gone", Content: "soon"})

	removed, err := e.svc.Delete(ctx, d.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	if res, _ := e.svc.Search(ctx, "soon", 10); len(res) != 0 {
		t.Errorf("deleted dream still searchable: %+v", res)
	}

	removed, err = e.svc.Delete(ctx, "nope")
	if err != nil || removed {
		t.Errorf("Delete unknown = %v, %v; want false, nil", removed, err)
	}
	kinds := e.events.got()
	if len(kinds) != 2 || kinds[1] != sse.EventDreamDeleted {
		t.Errorf("events = %v", kinds)
	}
}

func TestListDaysAndFilter(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	_, _ = e.svc.Import(ctx, []models.Dream{
		{ID: "a", Title: "A", Content: "a", Date: "2024-03-01", Time: "01:00 AM"},
		{ID: "b", Title: "B", Content: "b", Date: "2024-03-05", Time: "02:00 AM"},
	})
	_, _ = e.svc.Create(ctx, CreateInput{Title: "C", Content: "c"})

	if got := e.svc.List(ctx, dreamstore.Filter{}); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	f, _ := dreamstore.ParseFilter("2024-03-02", "", testutil.Now)
	days := e.svc.Days(ctx, f)
	if len(days) != 2 || days[0].Date != "2024-03-10" || days[1].Date != "2024-03-05" {
		t.Errorf("days = %+v", days)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	_, _ = e.svc.Create(ctx, CreateInput{Title: "Harbor", Content: "Boats made of PAPER"})

	res, err := e.svc.Search(ctx, "paper", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Title != "Harbor" {
		t.Errorf("search = %+v", res)
	}
	if _, err := e.svc.Search(ctx, "  ", 5); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty query: err = %v", err)
	}
}

func TestStats(t *testing.T) {
	for _, withDB := range []bool{true, false} {
		e := newEnv(t, withDB)
		ctx := context.Background()
		_, _ = e.svc.Create(ctx, CreateInput{Title: "1", Content: "1"})
		_, _ = e.svc.Create(ctx, CreateInput{Title: "2", Content: "2"})
		stats, err := e.svc.Stats(ctx, 0)
		if err != nil {
			t.Fatalf("Stats(db=%v): %v", withDB, err)
		}
		if len(stats) != 1 || stats[0].Count != 2 {
			t.Errorf("Stats(db=%v) = %+v", withDB, stats)
		}
	}
}

func TestImportSyncsIndex(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	n, err := e.svc.Import(ctx, []models.Dream{
		{ID: "old", Title: "Archive", Content: "from another device", Date: "2023-01-01", Time: "09:00 PM"},
	})
	if err != nil || n != 1 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if res, _ := e.svc.Search(ctx, "device", 5); len(res) != 1 {
		t.Errorf("imported dream not indexed: %+v", res)
	}
}

func TestSaveAudio(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	rec, err := e.svc.SaveAudio(ctx, testutil.WAV(160))
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	if !strings.HasPrefix(rec.AudioRef, "audio/") || !strings.HasSuffix(rec.AudioRef, ".wav") {
		t.Errorf("ref = %q", rec.AudioRef)
	}

	recs, err := e.svc.Recordings(ctx)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 1 || recs[0].AudioRef != rec.AudioRef || recs[0].Attached {
		t.Errorf("recordings = %+v", recs)
	}

	if _, err := e.svc.SaveAudio(ctx, []byte("just some text")); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("text upload: err = %v, want ErrValidation", err)
	}
	if _, err := e.svc.SaveAudio(ctx, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty upload: err = %v, want ErrValidation", err)
	}
}

func TestAudioPath(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	_ = e.files.Write("audio/x.wav", testutil.WAV(1))

	p, err := e.svc.AudioPath(ctx, "x.wav")
	if err != nil {
		t.Fatalf("AudioPath: %v", err)
	}
	if !strings.HasSuffix(p, "/audio/x.wav") {
		t.Errorf("path = %q", p)
	}
	if _, err := e.svc.AudioPath(ctx, "missing.wav"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	for _, name := range []string{"../dreamJournal.json", ".hidden", ""} {
		if _, err := e.svc.AudioPath(ctx, name); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("name %q: err = %v, want ErrValidation", name, err)
		}
	}
}
