package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/photovaultbackend/embeddings"
	"github.com/camden-git/photovaultbackend/gdrive"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/queue"
	"github.com/camden-git/photovaultbackend/repository"
)

// setupTestDB opens a throwaway sqlite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.ImportJob{},
		&models.ImportJobFile{},
		&models.Photo{},
		&models.FaceEmbedding{},
	))
	return db
}

type testRepos struct {
	jobs   *repository.ImportJobRepository
	files  *repository.ImportJobFileRepository
	photos *repository.PhotoRepository
	users  *repository.UserRepository
}

func newTestRepos(t *testing.T) (*gorm.DB, testRepos) {
	t.Helper()
	db := setupTestDB(t)
	return db, testRepos{
		jobs:   repository.NewImportJobRepository(db),
		files:  repository.NewImportJobFileRepository(db),
		photos: repository.NewPhotoRepository(db),
		users:  repository.NewUserRepository(db),
	}
}

// fakeDrive is an in-memory folder-tree provider. Image pages are keyed by
// folder id; a page token is the stringified page index.
type fakeDrive struct {
	pages      map[string][][]gdrive.FileDescriptor
	subfolders map[string][]gdrive.Folder
	downloads  map[string][]byte
	// remaining transient download failures per file id
	failures    map[string]int
	listErr     error
	downloadErr error
	listCalls   int
}

func (d *fakeDrive) ListImages(ctx context.Context, userID uint, folderID, pageToken string) ([]gdrive.FileDescriptor, string, error) {
	d.listCalls++
	if d.listErr != nil {
		return nil, "", d.listErr
	}
	pages := d.pages[folderID]
	idx := 0
	if pageToken != "" {
		idx, _ = strconv.Atoi(pageToken)
	}
	if idx >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(pages) {
		next = strconv.Itoa(idx + 1)
	}
	return pages[idx], next, nil
}

func (d *fakeDrive) ListSubfolders(ctx context.Context, userID uint, folderID string) ([]gdrive.Folder, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.subfolders[folderID], nil
}

func (d *fakeDrive) ListFolders(ctx context.Context, userID uint, parentID string) ([]gdrive.Folder, error) {
	return d.ListSubfolders(ctx, userID, parentID)
}

func (d *fakeDrive) Download(ctx context.Context, userID uint, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.downloadErr != nil {
		return nil, d.downloadErr
	}
	if d.failures[fileID] > 0 {
		d.failures[fileID]--
		return nil, fmt.Errorf("transient drive error for %s", fileID)
	}
	data, ok := d.downloads[fileID]
	if !ok {
		return nil, fmt.Errorf("no such file %s", fileID)
	}
	return data, nil
}

// fakeQueue records sent bodies and hands nothing back; the worker tests
// drive the Processor directly instead of going through Receive.
type fakeQueue struct {
	sent    [][]byte
	sendErr error
}

func (q *fakeQueue) SendBatch(ctx context.Context, bodies [][]byte) error {
	if q.sendErr != nil {
		return q.sendErr
	}
	q.sent = append(q.sent, bodies...)
	return nil
}

func (q *fakeQueue) Receive(ctx context.Context, wait time.Duration) (*queue.Message, error) {
	return nil, nil
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error                { return nil }
func (q *fakeQueue) ExtendVisibility(ctx context.Context, r string, d time.Duration) error { return nil }
func (q *fakeQueue) Requeue(ctx context.Context, receiptHandle string) error               { return nil }
func (q *fakeQueue) ReclaimExpired(ctx context.Context) (int, error)                       { return 0, nil }

// fakeStore is an in-memory object store
type fakeStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(key string, data []byte, contentType string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.objects[key] = data
	return "http://store/media/" + key, nil
}

func (s *fakeStore) Delete(key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) SignedURL(key string, ttl time.Duration) (string, error) {
	return "http://store/media/" + key + "?sig=test", nil
}

func (s *fakeStore) KeyFromURL(rawURL string) (string, error) {
	key := strings.TrimPrefix(rawURL, "http://store/media/")
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	return key, nil
}

// fakeScorer returns a fixed face set
type fakeScorer struct {
	faces []embeddings.Face
	err   error
	calls int
}

func (s *fakeScorer) ScoreURL(ctx context.Context, imageURL string) ([]embeddings.Face, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.faces, nil
}

func (s *fakeScorer) ScoreBytes(ctx context.Context, data []byte, filename string) ([]embeddings.Face, error) {
	return s.ScoreURL(ctx, filename)
}

func createJob(t *testing.T, repos testRepos, status string, total int) *models.ImportJob {
	t.Helper()
	job := &models.ImportJob{
		UserID:     1,
		RoomID:     "room-1",
		FolderID:   "root",
		FolderName: "Wedding",
		Status:     status,
		TotalFiles: total,
	}
	require.NoError(t, repos.jobs.Create(job))
	return job
}

func createUser(t *testing.T, repos testRepos, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", Role: models.RolePhotographer}
	require.NoError(t, repos.users.Create(user))
	return user
}

func jobStatus(t *testing.T, repos testRepos, jobID string) string {
	t.Helper()
	job, err := repos.jobs.GetByID(jobID)
	require.NoError(t, err)
	return job.Status
}
