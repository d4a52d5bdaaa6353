package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"QuoteChat/bot/quote"
	"QuoteChat/entity"
	"QuoteChat/internal/lib/sl"
)

// Store persists threads and their append-only message logs.
type Store interface {
	// GetOrCreateThread returns the thread for (customer, product). When none
	// exists it persists thread together with its seed message and reports
	// created=true; otherwise thread and seed are discarded.
	GetOrCreateThread(ctx context.Context, thread *entity.Thread, seed *entity.Message) (*entity.Thread, bool, error)
	GetThread(ctx context.Context, id string) (*entity.Thread, error)
	ListThreads(ctx context.Context, filter entity.ThreadFilter) ([]entity.Thread, error)
	// ListMessages returns messages created strictly after since (all when
	// since is nil) in ascending order.
	ListMessages(ctx context.Context, threadID string, since *time.Time) ([]entity.Message, error)
	// Commit stamps and appends msgs and writes thread in one atomic step.
	// It fails with entity.ErrConflict, writing nothing, when the stored
	// version differs from expectedVersion.
	Commit(ctx context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error
	SetStatus(ctx context.Context, threadID string, status entity.ThreadStatus) error
}

type ProductCatalog interface {
	// ProductName fails with entity.ErrNotFound for unknown products.
	ProductName(ctx context.Context, productID int64) (string, error)
}

type ProfileSource interface {
	// CustomerProfile returns nil without error when the customer has no profile.
	CustomerProfile(ctx context.Context, customerID int64) (*entity.Profile, error)
}

type FileStorage interface {
	UploadFile(ctx context.Context, filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error)
	DownloadFile(ctx context.Context, fileID string) (string, entity.FileMetadata, io.ReadCloser, error)
}

// Publisher pushes freshly committed messages to live subscribers of a
// thread. views renders the messages for a given viewer.
type Publisher interface {
	Publish(threadID string, views func(viewerID int64) []entity.MessageView)
}

type Notifier interface {
	NotifyLeadReady(ctx context.Context, thread *entity.Thread, productName string) error
}

type Authenticator interface {
	Verify(token string) (*entity.Actor, error)
}

type Core struct {
	store      Store
	catalog    ProductCatalog
	profiles   ProfileSource
	files      FileStorage
	events     Publisher
	notifier   Notifier
	auth       Authenticator
	machine    *quote.Machine
	fileSecret string
	fileTTL    time.Duration
	log        *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		machine: quote.NewMachine(quote.NewQuoteWorkflow()),
		fileTTL: 15 * time.Minute,
		log:     log.With(sl.Module("core")),
	}
}

func (c *Core) SetStore(store Store) {
	c.store = store
}

func (c *Core) SetProductCatalog(catalog ProductCatalog) {
	c.catalog = catalog
}

func (c *Core) SetProfileSource(profiles ProfileSource) {
	c.profiles = profiles
}

func (c *Core) SetFileStorage(files FileStorage) {
	c.files = files
}

func (c *Core) SetPublisher(events Publisher) {
	c.events = events
}

func (c *Core) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}

func (c *Core) SetAuthenticator(auth Authenticator) {
	c.auth = auth
}

func (c *Core) SetFileSigning(secret string, ttl time.Duration) {
	c.fileSecret = secret
	if ttl > 0 {
		c.fileTTL = ttl
	}
}

// AuthenticateByToken resolves a bearer token to the calling actor.
func (c *Core) AuthenticateByToken(token string) (*entity.Actor, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("authentication not configured")
	}
	return c.auth.Verify(token)
}
