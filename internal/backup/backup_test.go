package backup

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
)

// fakeS3 captures uploaded objects in memory and serves them back.
type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*input.Key]
	if !ok {
		return nil, io.EOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func setupBackupTest(t *testing.T) (*sql.DB, *store.BackupStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "homematch.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, store.NewBackupStore(db)
}

func testManager(t *testing.T, db *sql.DB, bs *store.BackupStore) (*Manager, *fakeS3) {
	t.Helper()
	cfg := Config{
		S3:         S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "household passphrase",
		Interval:   time.Hour,
	}
	m := NewManager(cfg, db, bs, nil, slog.Default())
	fake := newFakeS3()
	m.client = fake
	return m, fake
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	db, bs := setupBackupTest(t)

	m := NewManager(Config{}, db, bs, nil, slog.Default())
	if m.Enabled() {
		t.Error("manager should be disabled without credentials")
	}
	if m.Status().State != StateDisabled {
		t.Errorf("State = %q, want %q", m.Status().State, StateDisabled)
	}
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("RunNow should fail when disabled")
	}
}

func TestManagerEnabledWithConfig(t *testing.T) {
	db, bs := setupBackupTest(t)

	m, _ := testManager(t, db, bs)
	if !m.Enabled() {
		t.Error("manager should be enabled")
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	db, bs := setupBackupTest(t)
	m, fake := testManager(t, db, bs)

	size, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if size <= 0 {
		t.Errorf("size = %d, want > 0", size)
	}
	if len(fake.objects) != 1 {
		t.Fatalf("uploaded objects = %d, want 1", len(fake.objects))
	}

	for key, data := range fake.objects {
		if int64(len(data)) != size {
			t.Errorf("object size = %d, want %d", len(data), size)
		}
		plaintext, err := Decrypt(data, "household passphrase")
		if err != nil {
			t.Fatalf("decrypt uploaded object: %v", err)
		}
		// A valid sqlite snapshot starts with the standard header.
		if !bytes.HasPrefix(plaintext, []byte("SQLite format 3")) {
			t.Errorf("object %s is not a sqlite snapshot", key)
		}
	}

	status := m.Status()
	if status.State != StateIdle {
		t.Errorf("State = %q, want %q", status.State, StateIdle)
	}
	if status.LastBackup == nil {
		t.Error("LastBackup should be set after a successful run")
	}
}

func TestRunNowRecordsCompletion(t *testing.T) {
	db, bs := setupBackupTest(t)
	m, _ := testManager(t, db, bs)

	size, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	backups, err := bs.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups))
	}
	if backups[0].Status != model.BackupStatusComplete {
		t.Errorf("Status = %q, want %q", backups[0].Status, model.BackupStatusComplete)
	}
	if backups[0].SizeBytes != size {
		t.Errorf("SizeBytes = %d, want %d", backups[0].SizeBytes, size)
	}
}

func TestRunNowMarksFailureOnUploadError(t *testing.T) {
	db, bs := setupBackupTest(t)
	m, fake := testManager(t, db, bs)
	fake.putErr = io.ErrUnexpectedEOF

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}

	backups, err := bs.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups))
	}
	if backups[0].Status != model.BackupStatusFailed {
		t.Errorf("Status = %q, want %q", backups[0].Status, model.BackupStatusFailed)
	}
	if m.Status().State != StateError {
		t.Errorf("State = %q, want %q", m.Status().State, StateError)
	}
}

func TestFetchRoundTrip(t *testing.T) {
	db, bs := setupBackupTest(t)
	m, fake := testManager(t, db, bs)

	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	var filename string
	for key := range fake.objects {
		filename = key
	}

	plaintext, err := m.Fetch(context.Background(), filename)
	if err != nil {
		t.Fatalf("fetch backup: %v", err)
	}
	if !bytes.HasPrefix(plaintext, []byte("SQLite format 3")) {
		t.Error("fetched backup is not a sqlite snapshot")
	}
}

func TestStatusCallback(t *testing.T) {
	db, bs := setupBackupTest(t)

	var states []State
	cfg := Config{
		S3:         S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "pass",
	}
	m := NewManager(cfg, db, bs, func(s Status) { states = append(states, s.State) }, slog.Default())
	m.client = newFakeS3()

	if _, err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("run backup: %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("callback invocations = %d, want 2", len(states))
	}
	if states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("states = %v, want [running idle]", states)
	}
}
