package transport

import (
	"context"
	"fmt"
	"matrix-routing-client/internal/domain"
	"net/http"
	"sync"
)

type Call struct {
	Method string
	URL    string
	Body   []byte
}

type fixtureReply struct {
	result domain.JsonResult
	err    error
}

// FixtureTransport replays scripted replies in order, separately for POST and
// GET. The last reply of each queue repeats once the queue is drained, so a
// single "processing" reply models a job that never finishes.
type FixtureTransport struct {
	mu    sync.Mutex
	posts []fixtureReply
	gets  []fixtureReply
	calls []Call
}

func NewFixtureTransport() *FixtureTransport {
	return &FixtureTransport{}
}

func (f *FixtureTransport) OnPost(body string, status int) *FixtureTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, fixtureReply{result: jsonResult(body, status)})
	return f
}

func (f *FixtureTransport) OnGet(body string, status int) *FixtureTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, fixtureReply{result: jsonResult(body, status)})
	return f
}

// FailPost scripts a transport-level failure for the next POST.
func (f *FixtureTransport) FailPost(err error) *FixtureTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, fixtureReply{err: connectionError(http.MethodPost, "fixture", err)})
	return f
}

// FailGet scripts a transport-level failure for the next GET.
func (f *FixtureTransport) FailGet(err error) *FixtureTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, fixtureReply{err: connectionError(http.MethodGet, "fixture", err)})
	return f
}

func (f *FixtureTransport) Post(ctx context.Context, url string, body []byte) (domain.JsonResult, error) {
	return f.next(ctx, &f.posts, Call{Method: http.MethodPost, URL: url, Body: body})
}

func (f *FixtureTransport) Get(ctx context.Context, url string) (domain.JsonResult, error) {
	return f.next(ctx, &f.gets, Call{Method: http.MethodGet, URL: url})
}

func (f *FixtureTransport) next(ctx context.Context, queue *[]fixtureReply, call Call) (domain.JsonResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.JsonResult{}, connectionError(call.Method, call.URL, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)

	if len(*queue) == 0 {
		return domain.JsonResult{}, fmt.Errorf("fixture transport: no reply scripted for %s %s", call.Method, call.URL)
	}

	r := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return r.result, r.err
}

// Calls returns a copy of every request seen so far.
func (f *FixtureTransport) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many requests used the given method.
func (f *FixtureTransport) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func jsonResult(body string, status int) domain.JsonResult {
	return domain.JsonResult{
		Body:       body,
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
