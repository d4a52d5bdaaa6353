package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuoteChat/entity"
	"QuoteChat/internal/storage/memory"
)

const (
	promptEmailText = "¿Cuál es tu correo electrónico?"
	promptPhoneText = "¿Cuál es tu número de teléfono?"
)

var (
	customer = &entity.Actor{ID: 7, Username: "jperez", Name: "Juan"}
	stranger = &entity.Actor{ID: 8, Username: "otro"}
	staff    = &entity.Actor{ID: 100, Username: "ventas", Name: "Carla", IsStaff: true}
)

type catalogStub map[int64]string

func (c catalogStub) ProductName(_ context.Context, id int64) (string, error) {
	name, ok := c[id]
	if !ok {
		return "", fmt.Errorf("product %d: %w", id, entity.ErrNotFound)
	}
	return name, nil
}

type profilesStub map[int64]*entity.Profile

func (p profilesStub) CustomerProfile(_ context.Context, id int64) (*entity.Profile, error) {
	return p[id], nil
}

type notifierStub struct {
	mu    sync.Mutex
	leads []string
}

func (n *notifierStub) NotifyLeadReady(_ context.Context, thread *entity.Thread, productName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, thread.ID+"|"+productName)
	return nil
}

type publisherStub struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *publisherStub) Publish(threadID string, views func(viewerID int64) []entity.MessageView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[threadID] += len(views(0))
}

type storedFile struct {
	name string
	data []byte
	meta entity.FileMetadata
}

type filesStub struct {
	mu    sync.Mutex
	files map[string]storedFile
}

func newFilesStub() *filesStub {
	return &filesStub{files: make(map[string]storedFile)}
}

func (f *filesStub) UploadFile(_ context.Context, filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("file-%d", len(f.files)+1)
	f.files[id] = storedFile{name: filename, data: data, meta: meta}
	return id, int64(len(data)), nil
}

func (f *filesStub) DownloadFile(_ context.Context, fileID string) (string, entity.FileMetadata, io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return "", entity.FileMetadata{}, nil, entity.ErrNotFound
	}
	return file.name, file.meta, io.NopCloser(bytes.NewReader(file.data)), nil
}

// conflictStore fails the first n commits with a version conflict.
type conflictStore struct {
	*memory.Store
	mu        sync.Mutex
	conflicts int
	commits   int
}

func (s *conflictStore) Commit(ctx context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error {
	s.mu.Lock()
	s.commits++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return fmt.Errorf("thread %s: %w", thread.ID, entity.ErrConflict)
	}
	s.mu.Unlock()
	return s.Store.Commit(ctx, thread, expectedVersion, msgs)
}

type fixture struct {
	core     *Core
	store    *memory.Store
	profiles profilesStub
	notifier *notifierStub
	events   *publisherStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		profiles: profilesStub{},
		notifier: &notifierStub{},
		events:   &publisherStub{},
	}
	f.core = New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.core.SetStore(f.store)
	f.core.SetProductCatalog(catalogStub{3: "Kit On-Grid 3 kW", 4: "Kit Off-Grid 5 kW"})
	f.core.SetProfileSource(f.profiles)
	f.core.SetNotifier(f.notifier)
	f.core.SetPublisher(f.events)
	f.core.SetFileSigning("test-secret", time.Minute)
	return f
}

func (f *fixture) createThread(t *testing.T) string {
	t.Helper()
	id, err := f.core.CreateThread(context.Background(), customer, 0, 3)
	require.NoError(t, err)
	return id
}

func (f *fixture) send(t *testing.T, actor *entity.Actor, threadID, text string) []entity.MessageView {
	t.Helper()
	views, err := f.core.Send(context.Background(), actor, threadID, text, nil)
	require.NoError(t, err)
	return views
}

func (f *fixture) thread(t *testing.T, id string) *entity.Thread {
	t.Helper()
	thread, err := f.store.GetThread(context.Background(), id)
	require.NoError(t, err)
	return thread
}

func TestCreateThread_IsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.core.CreateThread(context.Background(), customer, 7, 3)
	require.NoError(t, err)
	second, err := f.core.CreateThread(context.Background(), customer, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	threads, err := f.store.ListThreads(context.Background(), entity.ThreadFilter{CustomerID: 7})
	require.NoError(t, err)
	assert.Len(t, threads, 1)

	msgs, err := f.core.Fetch(context.Background(), customer, first, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "seed message is written once")
	assert.True(t, msgs[0].IsBot)
	assert.Contains(t, msgs[0].Text, "Kit On-Grid 3 kW")
	assert.Contains(t, msgs[0].Text, "Juan")
	assert.Equal(t, 1, f.events.counts[first])
}

func TestCreateThread_StaffUsesProfileName(t *testing.T) {
	f := newFixture(t)
	f.profiles[7] = &entity.Profile{CustomerID: 7, Username: "jperez", Name: "Juan Perez"}

	id, err := f.core.CreateThread(context.Background(), staff, 7, 4)
	require.NoError(t, err)

	msgs, err := f.core.Fetch(context.Background(), staff, id, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "¡Hola Juan Perez!")
	assert.Contains(t, msgs[0].Text, "Kit Off-Grid 5 kW")
	assert.True(t, f.thread(t, id).Fields.Name.IsAwaitingConfirmation())
}

func TestCreateThread_StaffWithoutProfileGreetsByAccount(t *testing.T) {
	f := newFixture(t)

	id, err := f.core.CreateThread(context.Background(), staff, 9, 3)
	require.NoError(t, err)

	msgs, err := f.core.Fetch(context.Background(), staff, id, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "¡Hola #9!")
	assert.True(t, f.thread(t, id).Fields.Name.IsUnset())
}

func TestCreateThread_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.core.CreateThread(ctx, stranger, 7, 3)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = f.core.CreateThread(ctx, customer, 0, 99)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = f.core.CreateThread(ctx, customer, 0, 0)
	assert.ErrorIs(t, err, entity.ErrBadRequest)
}

func TestSend_NameWithoutProfileConfirms(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	views := f.send(t, customer, id, "Juan Perez")
	require.Len(t, views, 2)
	assert.Equal(t, "Juan Perez", views[0].Text)
	assert.True(t, views[0].IsMine)
	assert.False(t, views[0].IsBot)
	assert.True(t, views[1].IsBot)
	assert.False(t, views[1].IsMine)
	assert.Equal(t, promptEmailText, views[1].Text)
	assert.True(t, views[1].Timestamp.After(views[0].Timestamp))

	assert.Equal(t, entity.Confirmed("Juan Perez"), f.thread(t, id).Fields.Name)
}

func TestSend_NameWithProfileGoesToManualEntry(t *testing.T) {
	f := newFixture(t)
	f.profiles[7] = &entity.Profile{CustomerID: 7, Name: "Juana Soto"}
	id := f.createThread(t)
	require.True(t, f.thread(t, id).Fields.Name.IsAwaitingConfirmation())

	views := f.send(t, customer, id, "Juan Perez")
	require.Len(t, views, 2)
	assert.Equal(t, entity.AwaitingEntry(), f.thread(t, id).Fields.Name)

	views = f.send(t, customer, id, "Juan Perez")
	require.Len(t, views, 2)
	assert.Equal(t, promptEmailText, views[1].Text)
	assert.Equal(t, entity.Confirmed("Juan Perez"), f.thread(t, id).Fields.Name)
}

func TestSend_InvalidEmailIsRePrompted(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)
	f.send(t, customer, id, "Juan Perez")

	views := f.send(t, customer, id, "not-an-email")
	require.Len(t, views, 2)
	assert.Contains(t, views[1].Text, "correo")
	assert.True(t, f.thread(t, id).Fields.Email.IsUnset())

	views = f.send(t, customer, id, "juan@example.com")
	require.Len(t, views, 2)
	assert.Equal(t, promptPhoneText, views[1].Text)
	assert.Equal(t, entity.Confirmed("juan@example.com"), f.thread(t, id).Fields.Email)
}

func TestSend_TooLongLeavesFieldsUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)
	before := f.thread(t, id).Fields

	views := f.send(t, customer, id, strings.Repeat("a", 600))
	require.Len(t, views, 2)
	assert.Contains(t, views[1].Text, "500")
	assert.Equal(t, before, f.thread(t, id).Fields)
}

func TestSend_CompletionHandsOverToStaff(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	for _, text := range []string{
		"Juan Perez",
		"juan@example.com",
		"+56 9 1234 5678",
		"Valparaíso, Viña del Mar",
		"Casa con consumo de 350 kWh al mes",
	} {
		views := f.send(t, customer, id, text)
		require.Len(t, views, 2, text)
	}

	thread := f.thread(t, id)
	assert.Equal(t, entity.StatusInProgress, thread.Status)
	assert.True(t, thread.Fields.AllConfirmed())
	assert.Equal(t, []string{id + "|Kit On-Grid 3 kW"}, f.notifier.leads)

	views := f.send(t, customer, id, "¿Cuándo me responden?")
	assert.Len(t, views, 1, "no bot reply after completion")
	assert.Len(t, f.notifier.leads, 1)
}

func TestSend_StaffMessageSilencesBot(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	views := f.send(t, staff, id, "Hola Juan, te ayudo con la cotización.")
	require.Len(t, views, 1)
	assert.True(t, views[0].IsMine)
	assert.Equal(t, staff.ID, f.thread(t, id).StaffID)
	assert.Equal(t, entity.StatusPending, f.thread(t, id).Status)

	views = f.send(t, customer, id, "Juan Perez")
	assert.Len(t, views, 1)
	thread := f.thread(t, id)
	assert.Equal(t, entity.StatusInProgress, thread.Status)
	assert.True(t, thread.Fields.Name.IsUnset())

	// a status reset by staff does not bring the bot back
	require.NoError(t, f.core.SetStatus(context.Background(), staff, id, entity.StatusPending))
	views = f.send(t, customer, id, "Juan Perez")
	assert.Len(t, views, 1)
	assert.True(t, f.thread(t, id).Fields.Name.IsUnset())
}

func TestSend_HandoffKeepsStatusSetByStaff(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	f.send(t, staff, id, "Hola Juan, te ayudo con la cotización.")
	f.send(t, customer, id, "Gracias")
	thread := f.thread(t, id)
	assert.Equal(t, entity.StatusInProgress, thread.Status)
	assert.True(t, thread.HandedOff)

	require.NoError(t, f.core.SetStatus(context.Background(), staff, id, entity.StatusPending))

	views := f.send(t, customer, id, "¿Hay novedades?")
	require.Len(t, views, 1)
	assert.False(t, views[0].IsBot)
	assert.Equal(t, entity.StatusPending, f.thread(t, id).Status)
	assert.Empty(t, f.notifier.leads)
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)
	ctx := context.Background()

	_, err := f.core.Send(ctx, customer, id, "   ", nil)
	assert.ErrorIs(t, err, entity.ErrBadRequest)

	_, err = f.core.Send(ctx, stranger, id, "hola", nil)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = f.core.Send(ctx, customer, "missing", "hola", nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSend_AttachmentRequiresStorage(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	upload := &entity.Upload{Filename: "plano.pdf", MIMEType: "application/pdf", Size: 4, Reader: strings.NewReader("%PDF")}
	_, err := f.core.Send(context.Background(), customer, id, "Adjunto plano", upload)
	assert.ErrorIs(t, err, entity.ErrBadRequest)

	msgs, err := f.core.Fetch(context.Background(), customer, id, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "nothing committed")
}

func TestSend_AttachmentRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.core.SetFileStorage(newFilesStub())
	id := f.createThread(t)
	ctx := context.Background()

	upload := &entity.Upload{Filename: "plano.pdf", MIMEType: "application/pdf", Size: 4, Reader: strings.NewReader("%PDF")}
	views, err := f.core.Send(ctx, staff, id, "Te envío el plano", upload)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].AttachmentURL)

	link, err := url.Parse(*views[0].AttachmentURL)
	require.NoError(t, err)
	fileID := strings.TrimPrefix(link.Path, "/api/v1/files/")

	filename, mimeType, reader, err := f.core.OpenAttachment(ctx, fileID, link.Query().Get("expires"), link.Query().Get("sig"))
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "plano.pdf", filename)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, "%PDF", string(data))

	_, _, _, err = f.core.OpenAttachment(ctx, fileID, link.Query().Get("expires"), "bad")
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestSend_OversizedAttachment(t *testing.T) {
	f := newFixture(t)
	f.core.SetFileStorage(newFilesStub())
	id := f.createThread(t)

	body := bytes.Repeat([]byte("x"), entity.MaxFileSize+1)
	// the declared size lies; the reader is still capped
	upload := &entity.Upload{Filename: "big.bin", MIMEType: "application/octet-stream", Size: 10, Reader: bytes.NewReader(body)}
	_, err := f.core.Send(context.Background(), customer, id, "archivo", upload)
	assert.ErrorIs(t, err, entity.ErrBadRequest)
	assert.ErrorIs(t, err, entity.ErrFileTooLarge)
}

func TestSend_RetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	store := &conflictStore{Store: f.store, conflicts: 2}
	f.core.SetStore(store)
	id := f.createThread(t)

	views := f.send(t, customer, id, "Juan Perez")
	require.Len(t, views, 2)
	assert.Equal(t, 3, store.commits)
	assert.Equal(t, entity.Confirmed("Juan Perez"), f.thread(t, id).Fields.Name)
}

func TestSend_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	store := &conflictStore{Store: f.store, conflicts: maxCommitAttempts}
	f.core.SetStore(store)
	id := f.createThread(t)

	_, err := f.core.Send(context.Background(), customer, id, "Juan Perez", nil)
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.Equal(t, maxCommitAttempts, store.commits)

	msgs, err := f.core.Fetch(context.Background(), customer, id, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSend_ConcurrentCustomerMessagesFillFieldOnce(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)

	var wg sync.WaitGroup
	for _, name := range []string{"Juan Perez", "Pedro Rojas"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := f.core.Send(context.Background(), customer, id, name, nil)
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	thread := f.thread(t, id)
	assert.True(t, thread.Fields.Name.IsConfirmed())
	// the second message lands on the email step and is rejected as invalid
	assert.True(t, thread.Fields.Email.IsUnset())

	msgs, err := f.core.Fetch(context.Background(), customer, id, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
}

func TestFetch_SinceCursor(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)
	ctx := context.Background()

	all, err := f.core.Fetch(ctx, customer, id, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	cursor := all[0].Timestamp

	empty, err := f.core.Fetch(ctx, customer, id, &cursor)
	require.NoError(t, err)
	assert.Empty(t, empty)

	f.send(t, customer, id, "Juan Perez")

	first, err := f.core.Fetch(ctx, customer, id, &cursor)
	require.NoError(t, err)
	again, err := f.core.Fetch(ctx, customer, id, &cursor)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, first, again)
	assert.True(t, first[0].Timestamp.After(cursor))
	assert.True(t, first[1].Timestamp.After(first[0].Timestamp))

	// staff sees the same log from its own point of view
	staffView, err := f.core.Fetch(ctx, staff, id, &cursor)
	require.NoError(t, err)
	require.Len(t, staffView, 2)
	assert.False(t, staffView[0].IsMine)

	_, err = f.core.Fetch(ctx, stranger, id, nil)
	assert.ErrorIs(t, err, entity.ErrForbidden)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	id := f.createThread(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.core.SetStatus(ctx, customer, id, entity.StatusApproved), entity.ErrForbidden)
	assert.ErrorIs(t, f.core.SetStatus(ctx, staff, id, "archived"), entity.ErrBadRequest)
	assert.ErrorIs(t, f.core.SetStatus(ctx, staff, "missing", entity.StatusApproved), entity.ErrNotFound)

	require.NoError(t, f.core.SetStatus(ctx, staff, id, entity.StatusApproved))
	thread := f.thread(t, id)
	assert.Equal(t, entity.StatusApproved, thread.Status)
	assert.True(t, thread.Fields.Name.IsUnset(), "status is independent of dialogue progress")
}

func TestListThreads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.createThread(t)
	_, err := f.core.CreateThread(ctx, stranger, 0, 4)
	require.NoError(t, err)

	own, err := f.core.ListThreads(ctx, customer, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine, own[0].ID)
	assert.Equal(t, "Kit On-Grid 3 kW", own[0].ProductName)

	all, err := f.core.ListThreads(ctx, staff, entity.StatusPending)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.core.ListThreads(ctx, staff, "archived")
	assert.ErrorIs(t, err, entity.ErrBadRequest)
}
