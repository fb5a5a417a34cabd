package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/gdrive"
)

func newDiscoverer(repos testRepos, drive *fakeDrive, q *fakeQueue) *Discoverer {
	dispatcher := NewDispatcher(repos.jobs, repos.files, q, 10)
	return NewDiscoverer(drive, repos.jobs, dispatcher, 0)
}

func TestDiscovererEmptyFolderCompletesJob(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{pages: map[string][][]gdrive.FileDescriptor{}}
	q := &fakeQueue{}

	require.NoError(t, newDiscoverer(repos, drive, q).Run(context.Background(), job, false))

	loaded, err := repos.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusCompleted, loaded.Status)
	assert.Equal(t, 0, loaded.TotalFiles)
	assert.Empty(t, q.sent)
}

func TestDiscovererFailureMarksJobFailed(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{listErr: errors.New("provider unavailable")}
	q := &fakeQueue{}

	err := newDiscoverer(repos, drive, q).Run(context.Background(), job, false)
	assert.Error(t, err)

	loaded, lookupErr := repos.jobs.GetByID(job.ID)
	require.NoError(t, lookupErr)
	assert.Equal(t, database.JobStatusFailed, loaded.Status)
	require.NotNil(t, loaded.ErrorMessage)
	assert.Contains(t, *loaded.ErrorMessage, "provider unavailable")
	assert.Empty(t, q.sent)
}

func TestDiscovererDispatchesDiscoveredImages(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{
		pages: map[string][][]gdrive.FileDescriptor{
			"root": {
				{
					{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg", Size: 100},
					{ID: "f2", Name: "b.png", MimeType: "image/png", Size: 200},
				},
				{
					{ID: "f3", Name: "c.jpg", MimeType: "image/jpeg", Size: 300},
				},
			},
		},
	}
	q := &fakeQueue{}

	require.NoError(t, newDiscoverer(repos, drive, q).Run(context.Background(), job, false))

	loaded, err := repos.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusProcessing, loaded.Status)
	assert.Equal(t, 3, loaded.TotalFiles)

	assert.Len(t, q.sent, 3)
	files, err := repos.files.ListRecentByJob(job.ID, 10)
	require.NoError(t, err)
	assert.Len(t, files, 3)
	for _, f := range files {
		assert.Equal(t, database.FileStatusQueued, f.Status)
	}
	// both pages were fetched
	assert.Equal(t, 2, drive.listCalls)
}

func TestDiscovererFiltersNonImages(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{
		pages: map[string][][]gdrive.FileDescriptor{
			"root": {
				{
					{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg"},
					{ID: "f2", Name: "notes.pdf", MimeType: "application/pdf"},
					{ID: "f3", Name: "clip.mp4", MimeType: "video/mp4"},
				},
			},
		},
	}
	q := &fakeQueue{}

	require.NoError(t, newDiscoverer(repos, drive, q).Run(context.Background(), job, false))

	loaded, err := repos.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalFiles)
	assert.Len(t, q.sent, 1)

	msg, err := DecodeMessage(q.sent[0])
	require.NoError(t, err)
	assert.Equal(t, "f1", msg.DriveFileID)
	assert.Equal(t, job.ID, msg.JobID)
}

func TestDiscovererWalksSubfolders(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{
		pages: map[string][][]gdrive.FileDescriptor{
			"root": {{{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg"}}},
			"sub1": {{{ID: "f2", Name: "b.jpg", MimeType: "image/jpeg"}}},
			"sub2": {{{ID: "f3", Name: "c.jpg", MimeType: "image/jpeg"}}},
		},
		subfolders: map[string][]gdrive.Folder{
			"root": {{ID: "sub1", Name: "day one"}, {ID: "sub2", Name: "day two"}},
		},
	}
	q := &fakeQueue{}

	require.NoError(t, newDiscoverer(repos, drive, q).Run(context.Background(), job, true))

	loaded, err := repos.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.TotalFiles)
}

func TestDiscovererIgnoresSubfoldersWhenDisabled(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{
		pages: map[string][][]gdrive.FileDescriptor{
			"root": {{{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg"}}},
			"sub1": {{{ID: "f2", Name: "b.jpg", MimeType: "image/jpeg"}}},
		},
		subfolders: map[string][]gdrive.Folder{
			"root": {{ID: "sub1", Name: "day one"}},
		},
	}
	q := &fakeQueue{}

	require.NoError(t, newDiscoverer(repos, drive, q).Run(context.Background(), job, false))

	loaded, err := repos.jobs.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.TotalFiles)
}

func TestDispatchEnqueueFailureFailsJob(t *testing.T) {
	_, repos := newTestRepos(t)
	job := createJob(t, repos, database.JobStatusDiscovering, 0)
	drive := &fakeDrive{
		pages: map[string][][]gdrive.FileDescriptor{
			"root": {{{ID: "f1", Name: "a.jpg", MimeType: "image/jpeg"}}},
		},
	}
	q := &fakeQueue{sendErr: errors.New("queue down")}

	err := newDiscoverer(repos, drive, q).Run(context.Background(), job, false)
	assert.Error(t, err)
	assert.Equal(t, database.JobStatusFailed, jobStatus(t, repos, job.ID))
}
