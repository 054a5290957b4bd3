package domain

import "context"

// BookClient is the book half of the ebookgen API.
// Every method returns *RemoteError on a non-success response.
type BookClient interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id string) (*Book, error)
	PreviewBook(ctx context.Context, id string) (*Preview, error)
	CreateBook(ctx context.Context, path string) (*Book, error)
	UpdateBookSettings(ctx context.Context, id string, settings BookSettings) (*Book, error)
	DeleteBook(ctx context.Context, id string) error
}

// JobClient is the job half of the ebookgen API
type JobClient interface {
	CreateJob(ctx context.Context, req JobRequest) (*JobCreated, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	CancelJob(ctx context.Context, id string) (*Job, error)
	RetryJob(ctx context.Context, id string, runNow bool) (*JobCreated, error)
}

// Subscriber opens the push-only progress stream of a job
type Subscriber interface {
	Subscribe(ctx context.Context, jobID string) (Stream, error)
}

// Stream delivers raw JSON event frames until the server closes it.
// Next blocks; Close unblocks a pending Next.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// Notifier receives terminal job outcomes observed by this client
type Notifier interface {
	NotifyCompletion(ctx context.Context, record JobRecord) error
}

// NoOpNotifier discards notifications (no broker configured / tests).
type NoOpNotifier struct{}

func (NoOpNotifier) NotifyCompletion(context.Context, JobRecord) error { return nil }
