// Package remotetest provides in-memory fakes of the ebookgen API for tests.
package remotetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mmcdole/ebookctl/internal/domain"
)

// Call records one API call made against a Fake
type Call struct {
	Method   string
	ID       string
	Settings *domain.BookSettings
	Job      *domain.JobRequest
}

// Fake implements domain.BookClient and domain.JobClient over an in-memory
// book list. Errors are keyed by "Method" or "Method:id".
type Fake struct {
	mu sync.Mutex

	books    []domain.Book
	previews map[string]domain.Preview
	jobs     map[string]domain.Job
	errs     map[string]error
	calls    []Call
	nextJob  int

	// StartJobs makes run-now job creations report started
	StartJobs bool
}

// NewFake creates a fake serving books in the given order
func NewFake(books ...domain.Book) *Fake {
	return &Fake{
		books:     append([]domain.Book(nil), books...),
		previews:  make(map[string]domain.Preview),
		jobs:      make(map[string]domain.Job),
		errs:      make(map[string]error),
		StartJobs: true,
	}
}

// SetBooks replaces the server-side book list
func (f *Fake) SetBooks(books ...domain.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books = append([]domain.Book(nil), books...)
}

// SetStatus changes the server-side status of a book
func (f *Fake) SetStatus(id string, status domain.BookStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.find(id); i >= 0 {
		f.books[i].Status = status
	}
}

// SetPreview sets the preview returned for a book
func (f *Fake) SetPreview(id string, p domain.Preview) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews[id] = p
}

// FailWith makes calls matching key return err. A nil err clears it.
func (f *Fake) FailWith(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, key)
		return
	}
	f.errs[key] = err
}

// Calls returns the recorded calls in order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns the recorded call methods in order
func (f *Fake) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// JobRequests returns every CreateJob request in order
func (f *Fake) JobRequests() []domain.JobRequest {
	var out []domain.JobRequest
	for _, c := range f.Calls() {
		if c.Job != nil {
			out = append(out, *c.Job)
		}
	}
	return out
}

func (f *Fake) record(c Call) error {
	f.calls = append(f.calls, c)
	if err, ok := f.errs[c.Method+":"+c.ID]; ok {
		return err
	}
	if err, ok := f.errs[c.Method]; ok {
		return err
	}
	return nil
}

func (f *Fake) find(id string) int {
	for i, b := range f.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func notFound(what string) error {
	return &domain.RemoteError{StatusCode: 404, Message: what + " not found"}
}

func (f *Fake) ListBooks(ctx context.Context) ([]domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "ListBooks"}); err != nil {
		return nil, err
	}
	return append([]domain.Book(nil), f.books...), nil
}

func (f *Fake) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "GetBook", ID: id}); err != nil {
		return nil, err
	}
	i := f.find(id)
	if i < 0 {
		return nil, notFound("Book")
	}
	b := f.books[i]
	return &b, nil
}

func (f *Fake) PreviewBook(ctx context.Context, id string) (*domain.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "PreviewBook", ID: id}); err != nil {
		return nil, err
	}
	p := f.previews[id]
	return &p, nil
}

func (f *Fake) CreateBook(ctx context.Context, path string) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "CreateBook", ID: path}); err != nil {
		return nil, err
	}
	b := domain.Book{
		ID:         fmt.Sprintf("book-%d", len(f.books)+1),
		Title:      path,
		SourcePath: path,
		Status:     domain.StatusPending,
	}
	f.books = append(f.books, b)
	return &b, nil
}

func (f *Fake) UpdateBookSettings(ctx context.Context, id string, s domain.BookSettings) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "UpdateBookSettings", ID: id, Settings: &s}); err != nil {
		return nil, err
	}
	i := f.find(id)
	if i < 0 {
		return nil, notFound("Book")
	}
	b := &f.books[i]
	b.OCRLanguage = s.OCRLanguage
	b.OptimizeMode = s.OptimizeMode
	b.ErrorPolicy = s.ErrorPolicy
	b.FrontCover = s.FrontCover
	b.BackCover = s.BackCover
	out := *b
	return &out, nil
}

func (f *Fake) DeleteBook(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "DeleteBook", ID: id}); err != nil {
		return err
	}
	i := f.find(id)
	if i < 0 {
		return notFound("Book")
	}
	f.books = append(f.books[:i], f.books[i+1:]...)
	return nil
}

func (f *Fake) CreateJob(ctx context.Context, req domain.JobRequest) (*domain.JobCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "CreateJob", ID: req.BookID, Job: &req}); err != nil {
		return nil, err
	}
	if f.find(req.BookID) < 0 {
		return nil, notFound("Book")
	}
	return f.newJob(req.BookID, req.RunNow, req.Resume, req.ScheduledAt), nil
}

func (f *Fake) newJob(bookID string, runNow, resume bool, at *time.Time) *domain.JobCreated {
	f.nextJob++
	job := domain.Job{
		ID:     fmt.Sprintf("job-%d", f.nextJob),
		BookID: bookID,
		Status: domain.StatusPending,
		Resume: resume,
	}
	started := runNow && f.StartJobs
	if started {
		job.Status = domain.StatusRunning
	}
	if at != nil {
		job.ScheduledAt = domain.FormatSchedule(*at)
	}
	f.jobs[job.ID] = job
	return &domain.JobCreated{Job: job, Started: started}
}

func (f *Fake) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "GetJob", ID: id}); err != nil {
		return nil, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, notFound("Job")
	}
	return &job, nil
}

func (f *Fake) CancelJob(ctx context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "CancelJob", ID: id}); err != nil {
		return nil, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, notFound("Job")
	}
	if job.Status.IsTerminal() {
		return nil, &domain.RemoteError{StatusCode: 409, Message: "Job cannot be cancelled"}
	}
	job.Status = domain.StatusCancelled
	f.jobs[id] = job
	return &job, nil
}

func (f *Fake) RetryJob(ctx context.Context, id string, runNow bool) (*domain.JobCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Method: "RetryJob", ID: id}); err != nil {
		return nil, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, notFound("Job")
	}
	return f.newJob(job.BookID, runNow, true, nil), nil
}

// OutputURL mirrors the server's artifact path layout
func (f *Fake) OutputURL(bookID, name string) string {
	return "http://fake/api/output/" + bookID + "/" + name
}

// Subscriber hands out Streams the test drives by hand
type Subscriber struct {
	mu      sync.Mutex
	streams []*Stream
	err     error
}

// NewSubscriber creates a fake subscriber
func NewSubscriber() *Subscriber {
	return &Subscriber{}
}

// FailWith makes subsequent Subscribe calls fail
func (s *Subscriber) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Subscriber) Subscribe(ctx context.Context, jobID string) (domain.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	st := &Stream{
		JobID:  jobID,
		frames: make(chan []byte, 16),
		ended:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.streams = append(s.streams, st)
	return st, nil
}

// Streams returns every stream opened so far
func (s *Subscriber) Streams() []*Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Stream(nil), s.streams...)
}

// Last returns the most recently opened stream, or nil
func (s *Subscriber) Last() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil
	}
	return s.streams[len(s.streams)-1]
}

// ErrStreamClosed is returned by Next after the client closed the stream
var ErrStreamClosed = errors.New("stream closed by client")

// Stream is a hand-driven domain.Stream
type Stream struct {
	JobID string

	frames chan []byte
	ended  chan struct{}
	done   chan struct{}

	endOnce   sync.Once
	closeOnce sync.Once
	endErr    error
}

// Send queues a raw frame; it is dropped if the stream was closed
func (s *Stream) Send(frame string) {
	select {
	case s.frames <- []byte(frame):
	case <-s.done:
	}
}

// End makes Next fail with err after queued frames drain. A nil err is io.EOF.
func (s *Stream) End(err error) {
	s.endOnce.Do(func() {
		if err == nil {
			err = io.EOF
		}
		s.endErr = err
		close(s.ended)
	})
}

func (s *Stream) Next() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	default:
	}
	select {
	case f := <-s.frames:
		return f, nil
	case <-s.ended:
		return nil, s.endErr
	case <-s.done:
		return nil, ErrStreamClosed
	}
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Closed reports whether the client closed the stream
func (s *Stream) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

var (
	_ domain.BookClient = (*Fake)(nil)
	_ domain.JobClient  = (*Fake)(nil)
	_ domain.Subscriber = (*Subscriber)(nil)
)
