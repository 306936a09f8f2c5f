package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/cms"
	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/repository"
	"github.com/alexanderramin/sitepilot/internal/session"
	"github.com/alexanderramin/sitepilot/internal/testutil"
	"github.com/alexanderramin/sitepilot/internal/worker"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "user-1"
	testChat = "chat-1"
)

type message struct {
	Kind    string // prompt, show, animation
	Text    string
	Choices []Choice
}

type fakeTransport struct {
	mu      sync.Mutex
	msgs    []message
	panicOn string
}

func (f *fakeTransport) record(m message) {
	if f.panicOn != "" && strings.Contains(m.Text, f.panicOn) {
		panic("transport exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
}

func (f *fakeTransport) Prompt(_ context.Context, _ string, text string, choices []Choice) error {
	f.record(message{Kind: "prompt", Text: text, Choices: choices})
	return nil
}

func (f *fakeTransport) Show(_ context.Context, _ string, text string) error {
	f.record(message{Kind: "show", Text: text})
	return nil
}

func (f *fakeTransport) ShowAnimation(_ context.Context, _ string, asset, caption string) error {
	f.record(message{Kind: "animation", Text: asset + ": " + caption})
	return nil
}

func (f *fakeTransport) all() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeTransport) last() message {
	msgs := f.all()
	if len(msgs) == 0 {
		return message{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

// contains reports whether any message text contains s.
func (f *fakeTransport) contains(s string) bool {
	for _, m := range f.all() {
		if strings.Contains(m.Text, s) {
			return true
		}
	}
	return false
}

func verbs(choices []Choice) []Verb {
	out := make([]Verb, len(choices))
	for i, c := range choices {
		out[i] = c.Command.Verb
	}
	return out
}

type fakeLLM struct {
	mu      sync.Mutex
	replies map[llm.TaskType]string
	errs    map[llm.TaskType]error
	calls   map[llm.TaskType]int
	started chan struct{}
	block   chan struct{}
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		replies: map[llm.TaskType]string{
			llm.TaskCompetitor: "Strong blog, weak product pages.",
			llm.TaskTextStyle:  "Warm, concise, second person.",
			llm.TaskArticle: `{"title":"Fresh bread every day","content":"# Fresh bread\n\nBody text.",` +
				`"meta_title":"Fresh bread","meta_description":"Why fresh bread matters","keywords":["bread"],"slug":"fresh-bread"}`,
			llm.TaskContentPlan: `Here you go:
[{"day": 3, "title": "Sourdough basics", "keywords": ["sourdough"]},
 {"day": "1", "title": "Our bakery story", "intent": "informational"}]`,
		},
		errs:  map[llm.TaskType]error{},
		calls: map[llm.TaskType]int{},
	}
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.calls[req.Task]++
	reply, err := f.replies[req.Task], f.errs[req.Task]
	started, block := f.started, f.block
	f.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Text: reply, Model: "fake"}, nil
}

func (f *fakeLLM) Available(context.Context) bool { return true }

func (f *fakeLLM) set(task llm.TaskType, reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[task] = reply
	f.errs[task] = err
}

func (f *fakeLLM) count(task llm.TaskType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

type fakeSite struct {
	mu         sync.Mutex
	pages      []string
	pagesErr   error
	summary    string
	analyzeErr error
	results    []domain.ExternalLink
	searchErr  error
	discovered int
	queries    []string
	panicScan  bool
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:   []string{"https://bakery.example.com/about", "https://bakery.example.com/blog/rye"},
		summary: "Title: Rival bakery\nHeadings: Bread, Cakes",
		results: []domain.ExternalLink{
			{Title: "Bread history", URL: "https://wiki.example.org/bread", Snippet: "History of bread"},
		},
	}
}

func (f *fakeSite) DiscoverPages(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicScan {
		panic("scanner exploded")
	}
	f.discovered++
	return f.pages, f.pagesErr
}

func (f *fakeSite) AnalyzePage(context.Context, string) (string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary, []string{"https://rival.example.com/a"}, f.analyzeErr
}

func (f *fakeSite) SearchWeb(_ context.Context, query string, _ int) ([]domain.ExternalLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results, f.searchErr
}

func (f *fakeSite) discoverCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discovered
}

type fakeVision struct {
	mu     sync.Mutex
	reply  string
	err    error
	images int
	calls  int
}

func (f *fakeVision) DescribeImages(_ context.Context, _ string, images []llm.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.images = len(images)
	return f.reply, f.err
}

type fakeCMS struct {
	mu        sync.Mutex
	verifyErr error
	verified  []domain.CMSCredentials
	published []cms.Post
}

func (f *fakeCMS) Verify(_ context.Context, creds domain.CMSCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, creds)
	return f.verifyErr
}

func (f *fakeCMS) Publish(_ context.Context, _ domain.CMSCredentials, post cms.Post) (*cms.Published, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, post)
	return &cms.Published{ID: 42, Link: "https://bakery.example.com/?p=42"}, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	targets   []string
	panics    int
}

func (f *fakeRecorder) StepCompleted(step, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, step+"/"+path)
}

func (f *fakeRecorder) StepFailed(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, step)
}

func (f *fakeRecorder) Dispatched(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
}

func (f *fakeRecorder) UpdateHandled(string) {}

func (f *fakeRecorder) UpdatePanicked() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics++
}

type harness struct {
	w        *Wizard
	pool     *worker.Pool
	tr       *fakeTransport
	llm      *fakeLLM
	site     *fakeSite
	vision   *fakeVision
	cms      *fakeCMS
	rec      *fakeRecorder
	sessions *session.MemoryStore
	projects *repository.SQLiteProjectRepo
	articles *repository.SQLiteArticleRepo
	images   *repository.SQLiteImageRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	h := &harness{
		pool:     worker.New(4),
		tr:       &fakeTransport{},
		llm:      newFakeLLM(),
		site:     newFakeSite(),
		vision:   &fakeVision{reply: "Warm film photography, golden light."},
		cms:      &fakeCMS{},
		rec:      &fakeRecorder{},
		sessions: session.NewMemoryStore(),
		projects: repository.NewSQLiteProjectRepo(database),
		articles: repository.NewSQLiteArticleRepo(database),
		images:   repository.NewSQLiteImageRepo(database),
	}
	w, err := New(Deps{
		Projects:  h.projects,
		Articles:  h.articles,
		Images:    h.images,
		Transport: h.tr,
		Site:      h.site,
		LLM:       h.llm,
		Vision:    h.vision,
		CMS:       h.cms,
		Sessions:  h.sessions,
		Runner:    h.pool,
		Recorder:  h.rec,
	})
	require.NoError(t, err)
	h.w = w
	t.Cleanup(func() { _ = h.pool.Close(context.Background()) })
	return h
}

func (h *harness) send(t *testing.T, upd Update) {
	t.Helper()
	if upd.UserID == "" {
		upd.UserID = testUser
	}
	if upd.ChatID == "" {
		upd.ChatID = testChat
	}
	require.NoError(t, h.w.HandleUpdate(context.Background(), upd))
	h.pool.Wait()
}

func (h *harness) click(t *testing.T, cmd Command) {
	t.Helper()
	h.send(t, Update{Command: cmd.Encode()})
}

func (h *harness) reply(t *testing.T, text string) {
	t.Helper()
	h.send(t, Update{Text: text})
}

func (h *harness) seed(t *testing.T, opts ...testutil.ProjectOption) *domain.Project {
	t.Helper()
	p := testutil.NewTestProject(opts...)
	require.NoError(t, h.projects.Create(context.Background(), p))
	return p
}

func (h *harness) project(t *testing.T, id string) *domain.Project {
	t.Helper()
	p, err := h.projects.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) session(t *testing.T) session.State {
	t.Helper()
	st, err := h.sessions.Get(context.Background(), testUser)
	require.NoError(t, err)
	return st
}

func upd() Update {
	return Update{UserID: testUser, ChatID: testChat}
}
