// sink.go: rotating file egress for records drained from a ringlog.Logger
//
// Adapted from the teacher's rotation.go / lethe.go: the same
// rotate-compress-checksum-cleanup pipeline, retargeted to consume
// ringlog records instead of writing raw caller bytes directly.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package sink

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/ringlog"
)

// Config controls rotation, retention, and retry behavior of a Sink.
type Config struct {
	// MaxSizeStr is a human size ("100MB", "1GB"); zero value disables
	// size-based rotation.
	MaxSizeStr string
	// MaxAgeStr is a human duration ("24h", "7d"); zero value disables
	// age-based rotation.
	MaxAgeStr string
	// MaxBackups caps the number of rotated files kept; 0 means unlimited.
	MaxBackups int
	// Compress gzips rotated files in the background.
	Compress bool
	// Checksum writes a SHA-256 sidecar for each rotated file.
	Checksum bool
	// MaxBackupAgeStr is a human duration ("720h", "30d"); backups older
	// than this are removed during cleanup regardless of MaxBackups.
	// Zero value disables age-based backup retention.
	MaxBackupAgeStr string
	// LocalTime uses local time instead of UTC for backup filenames.
	LocalTime  bool
	RetryCount int
	RetryDelay time.Duration
	FileMode   os.FileMode
	// PollInterval is how long the consumer sleeps after an Empty drain
	// before retrying.
	PollInterval time.Duration
	// ErrorCallback, if set, is invoked on every internal operation error
	// (file I/O, rotation, compression, checksum) instead of being
	// silently swallowed. Mirrors the teacher's ErrorCallback field.
	ErrorCallback func(operation string, err error)
}

// Stats reports a Sink's activity. Every counter except BytesWritten is
// cumulative since Open.
type Stats struct {
	RecordsWritten uint64
	// BytesWritten is the size of the current output file: it starts at
	// the file's size when Open runs and resets to zero on each rotation.
	BytesWritten     uint64
	Rotations        uint64
	BackupsRemoved   uint64
	FilesCompressed  uint64
	ChecksumsWritten uint64
	// TasksDropped counts background cleanup/finalize tasks discarded
	// because the worker queue was full; rotation never blocks for them.
	TasksDropped uint64
}

// Sink drains a ringlog.Logger from a dedicated goroutine and writes each
// record as a line to a rotating file. It never blocks the Logger's
// producers: a Busy drain is retried, an Empty drain sleeps PollInterval.
type Sink struct {
	logger *ringlog.Logger
	cfg    Config

	filename     string
	maxSizeBytes int64
	maxAge       time.Duration
	maxBackupAge time.Duration

	currentFile      atomic.Pointer[os.File]
	bytesWritten     atomic.Uint64
	fileCreated      atomic.Int64
	rotationSeq      atomic.Uint64
	recordsWritten   atomic.Uint64
	backupsRemoved   atomic.Uint64
	filesCompressed  atomic.Uint64
	checksumsWritten atomic.Uint64

	bgWorkers *backgroundWorkers

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open starts draining logger into a rotating file at path. The file and
// its parent directory are created if they don't exist.
func Open(logger *ringlog.Logger, path string, cfg Config) (*Sink, error) {
	if logger == nil {
		return nil, fmt.Errorf("sink: nil logger")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}

	s := &Sink{
		logger: logger,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.MaxSizeStr != "" {
		size, err := ParseSize(cfg.MaxSizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MaxSizeStr %q: %v", cfg.MaxSizeStr, err)
		}
		s.maxSizeBytes = size
	}
	if cfg.MaxAgeStr != "" {
		age, err := ParseDuration(cfg.MaxAgeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MaxAgeStr %q: %v", cfg.MaxAgeStr, err)
		}
		s.maxAge = age
	}
	if cfg.MaxBackupAgeStr != "" {
		age, err := ParseDuration(cfg.MaxBackupAgeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MaxBackupAgeStr %q: %v", cfg.MaxBackupAgeStr, err)
		}
		s.maxBackupAge = age
	}

	if err := s.initFile(path); err != nil {
		return nil, err
	}

	if cfg.MaxBackups > 0 || s.maxBackupAge > 0 || cfg.Compress || cfg.Checksum {
		s.bgWorkers = newBackgroundWorkers(2)
	}

	go s.run()

	return s, nil
}

// fileMode returns the Sink's configured file mode, defaulting to 0644.
func (s *Sink) fileMode() os.FileMode {
	if s.cfg.FileMode != 0 {
		return s.cfg.FileMode
	}
	return 0644
}

// retryOp runs fn up to RetryCount times (default 3), sleeping RetryDelay
// (default 10ms) between attempts, and reports the final failure through
// the Sink's own reportError plumbing under operation -- callers no longer
// need a separate reportError call alongside every retry site.
func (s *Sink) retryOp(operation string, fn func() error) error {
	retryCount := s.cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryDelay := s.cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < retryCount; i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i < retryCount-1 {
			time.Sleep(retryDelay)
		}
	}

	wrapped := fmt.Errorf("%s failed after %d retries: %v", operation, retryCount, lastErr)
	s.reportError(operation, wrapped)
	return wrapped
}

func (s *Sink) initFile(path string) error {
	sanitizedPath, err := resolveSinkPath(path)
	if err != nil {
		return fmt.Errorf("invalid sink file path: %v", err)
	}

	dir := filepath.Dir(sanitizedPath)
	fileMode := s.fileMode()

	if dir != "." {
		if err := s.retryOp("directory_creation", func() error {
			return os.MkdirAll(dir, 0750)
		}); err != nil {
			return fmt.Errorf("failed to create sink directory: %v", err)
		}
	}

	var file *os.File
	err = s.retryOp("file_open", func() error {
		var err error
		file, err = os.OpenFile(sanitizedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode) // #nosec G304 -- sanitizedPath validated above
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to open sink file: %v", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat sink file: %v", err)
	}

	s.filename = sanitizedPath
	s.currentFile.Store(file)
	size := info.Size()
	if size < 0 {
		size = 0
	}
	s.bytesWritten.Store(uint64(size)) // #nosec G115 -- size checked for negative values above
	s.fileCreated.Store(time.Now().Unix())

	return nil
}

// run is the sink's consumer goroutine: drain, format, write, rotate.
func (s *Sink) run() {
	defer close(s.doneCh)
	out := make([]byte, 64*1024)

	for {
		select {
		case <-s.stopCh:
			s.drainRemaining(out)
			return
		default:
		}

		n, lvl, ts, err := s.logger.Read(out)
		switch err {
		case nil:
			s.writeRecord(lvl, ts, out[:n])
		case ringlog.ErrEmpty:
			time.Sleep(s.cfg.PollInterval)
		case ringlog.ErrBusy:
			time.Sleep(time.Microsecond)
		default:
			s.reportError("read", err)
			time.Sleep(s.cfg.PollInterval)
		}
	}
}

// drainRemaining empties whatever is left in the ring before Close
// returns, so records written right before shutdown aren't lost.
func (s *Sink) drainRemaining(out []byte) {
	for {
		n, lvl, ts, err := s.logger.Read(out)
		switch err {
		case nil:
			s.writeRecord(lvl, ts, out[:n])
		case ringlog.ErrBusy:
			time.Sleep(time.Microsecond)
		default:
			return
		}
	}
}

func (s *Sink) writeRecord(lvl ringlog.Level, ts uint32, payload []byte) {
	line := fmt.Sprintf("%d %s %s\n", ts, lvl, payload)

	file := s.currentFile.Load()
	if file == nil {
		return
	}
	if _, err := file.WriteString(line); err != nil {
		s.reportError("write", err)
		return
	}

	s.bytesWritten.Add(uint64(len(line)))
	s.recordsWritten.Add(1)

	if s.shouldRotate() {
		if err := s.performRotation(); err != nil {
			s.reportError("rotation", err)
		}
	}
}

func (s *Sink) shouldRotate() bool {
	if s.maxSizeBytes > 0 && int64(s.bytesWritten.Load()) >= s.maxSizeBytes {
		return true
	}
	if s.maxAge > 0 {
		created := time.Unix(s.fileCreated.Load(), 0)
		if time.Since(created) >= s.maxAge {
			return true
		}
	}
	return false
}

// performRotation closes the current file, renames it to a timestamped
// backup, opens a fresh file in its place, and schedules background
// cleanup/compression/checksum work for the backup.
func (s *Sink) performRotation() error {
	currentFile := s.currentFile.Load()
	if currentFile == nil {
		return fmt.Errorf("no current file to rotate")
	}

	backupName := s.generateBackupName()

	if err := s.retryOp("file_close", currentFile.Close); err != nil {
		return fmt.Errorf("failed to close current file: %v", err)
	}
	if err := s.retryOp("file_rename", func() error {
		return os.Rename(s.filename, backupName)
	}); err != nil {
		return fmt.Errorf("failed to rename sink file: %v", err)
	}

	retryDelay := s.cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 10 * time.Millisecond
	}
	time.Sleep(retryDelay)

	var newFile *os.File
	err := s.retryOp("file_create", func() error {
		var err error
		newFile, err = os.OpenFile(s.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.fileMode()) // #nosec G304 -- s.filename is sink-owned, not user input
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create new sink file: %v", err)
	}

	s.currentFile.Store(newFile)
	s.bytesWritten.Store(0)
	s.fileCreated.Store(time.Now().Unix())
	s.rotationSeq.Add(1)

	s.scheduleBackgroundTasks(backupName)
	return nil
}

func (s *Sink) generateBackupName() string {
	now := time.Now()
	if !s.cfg.LocalTime {
		now = now.UTC()
	}
	return fmt.Sprintf("%s.%s", s.filename, now.Format("2006-01-02-15-04-05"))
}

func (s *Sink) scheduleBackgroundTasks(backupName string) {
	if s.bgWorkers == nil {
		return
	}

	if s.cfg.MaxBackups > 0 || s.maxBackupAge > 0 {
		s.bgWorkers.submit(s.cleanupOldFiles)
	}
	if s.cfg.Compress || s.cfg.Checksum {
		// One task handles both: a rotated file that needs both gzipping
		// and a checksum gets hashed and compressed in the same read pass,
		// rather than two background tasks independently racing to open,
		// rename, and delete the same backup file.
		s.bgWorkers.submit(func() { s.finalizeRotatedFile(backupName) })
	}
}

func (s *Sink) reportError(operation string, err error) {
	if s.cfg.ErrorCallback != nil {
		s.cfg.ErrorCallback(operation, err)
	}
}

// cleanupOldFiles removes backups older than MaxBackupAge, then trims
// whatever remains down to MaxBackups, oldest first. Every removal is
// reflected in Stats().BackupsRemoved.
func (s *Sink) cleanupOldFiles() {
	matches, err := filepath.Glob(s.filename + ".*")
	if err != nil {
		return
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	now := time.Now()
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}

		if s.maxBackupAge > 0 && now.Sub(info.ModTime()) > s.maxBackupAge {
			s.removeBackup(match)
			continue
		}

		files = append(files, fileInfo{name: match, modTime: info.ModTime()})
	}

	if s.cfg.MaxBackups <= 0 || len(files) <= s.cfg.MaxBackups {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for i := 0; i < len(files)-s.cfg.MaxBackups; i++ {
		s.removeBackup(files[i].name)
	}
}

func (s *Sink) removeBackup(name string) {
	if err := os.Remove(name); err != nil {
		s.reportError("cleanup", fmt.Errorf("failed to remove %s: %v", name, err))
		return
	}
	s.backupsRemoved.Add(1)
}

// finalizeRotatedFile runs whichever of compression and checksumming are
// enabled over a single open of the rotated backup at filename. When both
// are enabled, the SHA-256 hash is computed from the same bytes streamed
// into the gzip writer (via io.MultiWriter) instead of reading the file
// twice or running two background tasks that would otherwise race to
// rename and delete the same path. The sidecar always names the original
// (pre-compression) backup file, since that's the identity an operator
// looks up a backup by.
func (s *Sink) finalizeRotatedFile(filename string) {
	compress, checksum := s.cfg.Compress, s.cfg.Checksum
	if !compress && !checksum {
		return
	}

	source, err := s.openForFinalize(filename)
	if err != nil {
		// openForFinalize's retryOp already reported this under
		// "finalize_open"; nothing more to do.
		return
	}
	defer source.Close()

	var sum hash.Hash
	if checksum {
		sum = sha256.New()
	}

	if compress {
		if err := s.compressWithOptionalHash(filename, source, sum); err != nil {
			s.reportError("compress", err)
			return
		}
		s.filesCompressed.Add(1)
	} else if _, err := io.Copy(sum, source); err != nil {
		s.reportError("checksum_read", err)
		return
	}

	if checksum {
		if err := s.writeChecksumSidecar(filename, sum.Sum(nil)); err != nil {
			s.reportError("checksum_write", err)
			return
		}
		s.checksumsWritten.Add(1)
	}
}

func (s *Sink) openForFinalize(filename string) (*os.File, error) {
	var source *os.File
	err := s.retryOp("finalize_open", func() error {
		var err error
		source, err = os.Open(filename) // #nosec G304 -- filename is an internally generated backup path
		return err
	})
	return source, err
}

// compressWithOptionalHash gzips source into filename+".gz" with crash
// consistency (write to a .tmp file, rename over it, only then remove the
// source), optionally tee-ing the uncompressed bytes into hash as it goes.
func (s *Sink) compressWithOptionalHash(filename string, source *os.File, sum hash.Hash) error {
	compressedName := filename + ".gz"
	tempName := compressedName + ".tmp"

	target, err := os.Create(tempName) // #nosec G304 -- tempName is internally generated
	if err != nil {
		return err
	}
	defer target.Close()

	gzWriter := gzip.NewWriter(target)

	var dst io.Writer = gzWriter
	if sum != nil {
		dst = io.MultiWriter(gzWriter, sum)
	}

	if _, err := io.Copy(dst, source); err != nil {
		_ = target.Close()
		_ = os.Remove(tempName)
		return err
	}
	if err := gzWriter.Close(); err != nil {
		_ = target.Close()
		_ = os.Remove(tempName)
		return err
	}
	if err := target.Close(); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, compressedName); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	return os.Remove(filename)
}

func (s *Sink) writeChecksumSidecar(filename string, sum []byte) error {
	content := fmt.Sprintf("%x  %s\n", sum, filepath.Base(filename))
	return os.WriteFile(filename+".sha256", []byte(content), 0600)
}

// Stats returns the sink's counters; see Stats for what each one covers.
func (s *Sink) Stats() Stats {
	stats := Stats{
		RecordsWritten:   s.recordsWritten.Load(),
		BytesWritten:     s.bytesWritten.Load(),
		Rotations:        s.rotationSeq.Load(),
		BackupsRemoved:   s.backupsRemoved.Load(),
		FilesCompressed:  s.filesCompressed.Load(),
		ChecksumsWritten: s.checksumsWritten.Load(),
	}
	if s.bgWorkers != nil {
		stats.TasksDropped = s.bgWorkers.tasksDropped.Load()
	}
	return stats
}

// Close stops the consumer goroutine, drains any remaining ring contents,
// waits for background workers to finish, and closes the current file.
func (s *Sink) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if s.bgWorkers != nil {
		s.bgWorkers.stop()
	}

	if file := s.currentFile.Load(); file != nil {
		return file.Close()
	}
	return nil
}

// backgroundWorkers runs a small fixed pool of goroutines that run rotation
// follow-up closures (cleanup, finalize) off the consumer's hot path. Tasks
// are plain func() values rather than a tagged struct dispatched by a type
// switch: scheduleBackgroundTasks already knows exactly which Sink method
// and arguments a task needs, so there is nothing left for a dispatcher to
// decide.
type backgroundWorkers struct {
	ctx          context.Context
	cancel       context.CancelFunc
	taskQueue    chan func()
	wg           sync.WaitGroup
	stopOnce     sync.Once
	tasksDropped atomic.Uint64
}

func newBackgroundWorkers(numWorkers int) *backgroundWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	bg := &backgroundWorkers{
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan func(), 100),
	}
	for i := 0; i < numWorkers; i++ {
		bg.wg.Add(1)
		go bg.worker()
	}
	return bg
}

func (bg *backgroundWorkers) worker() {
	defer bg.wg.Done()
	for {
		select {
		case <-bg.ctx.Done():
			return
		case task := <-bg.taskQueue:
			task()
		}
	}
}

// submit enqueues task, or drops it if the queue is full: rotation must
// never block waiting on cleanup or compression to catch up.
func (bg *backgroundWorkers) submit(task func()) {
	select {
	case bg.taskQueue <- task:
	case <-bg.ctx.Done():
	default:
		bg.tasksDropped.Add(1)
	}
}

func (bg *backgroundWorkers) stop() {
	bg.stopOnce.Do(func() {
		bg.cancel()
		close(bg.taskQueue)
		bg.wg.Wait()
	})
}
