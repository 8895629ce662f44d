package player

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/zachfi/radiogo/pkg/audio"
	"github.com/zachfi/radiogo/pkg/shoutcast"
)

// minWriteBufSize and maxWriteBufSize clamp the configured write buffer to avoid
// tiny writes (no benefit) or very large buffers (memory and latency).
const (
	minWriteBufSize = 32 * 1024       // 32 KiB
	maxWriteBufSize = 4 * 1024 * 1024 // 4 MiB

	// Bytes held back looking for the first frame sync of a new file.
	maxSyncSearch = 8192

	untitled = "untitled"
)

// Recorder saves the stream it is written to under dir/<station>/<title>.mp3, starting a new
// file whenever the now playing title changes. Files are written to a temp file first and only
// replace an existing recording of the same title when they are longer.
//
// Write and OnMetadata only queue work. A single goroutine owns the files: it writes, rotates
// and commits them, so disk latency never reaches the caller.
type Recorder struct {
	dir          string
	station      string
	writeBufSize int
	logger       *slog.Logger

	w      *ChannelWriter
	commit func(tempPath, destPath string)
	done   chan struct{} // closed when run exits
}

func NewRecorder(dir, station string, writeBufSize int, logger *slog.Logger) *Recorder {
	r := newRecorder(dir, station, writeBufSize, logger)
	go r.run()
	return r
}

func newRecorder(dir, station string, writeBufSize int, logger *slog.Logger) *Recorder {
	if writeBufSize < minWriteBufSize {
		writeBufSize = minWriteBufSize
	}
	if writeBufSize > maxWriteBufSize {
		writeBufSize = maxWriteBufSize
	}
	station = sanitizeName(station)
	if station == "" {
		station = "stream"
	}

	r := &Recorder{
		dir:          dir,
		station:      station,
		writeBufSize: writeBufSize,
		logger:       logger.With("component", "recorder"),
		w:            NewChannelWriter(),
		done:         make(chan struct{}),
	}
	r.commit = r.commitTempFile

	return r
}

// Write queues p for the current file.
func (r *Recorder) Write(p []byte) (int, error) {
	return r.w.Write(p)
}

// OnMetadata queues a switch to a new file named after the title and returns immediately.
func (r *Recorder) OnMetadata(m *shoutcast.Metadata) {
	title := sanitizeName(m.StreamTitle)
	if title == "" {
		title = untitled
	}
	if !r.w.Mark(title) {
		r.logger.Warn("recorder queue full, title change not recorded", "title", title)
	}
}

// Close flushes and commits the current file.
func (r *Recorder) Close() error {
	err := r.w.Close()
	<-r.done
	return err
}

// run drains the queue until it is closed, rotating files on title changes.
func (r *Recorder) run() {
	defer close(r.done)

	var (
		name = r.fileName(untitled)
		rec  = r.open(name)
	)
	defer func() {
		if rec != nil {
			rec.finish()
		}
	}()

	for c := range r.w.dataChan {
		if c.title == "" {
			if rec != nil && len(c.data) > 0 {
				rec.write(c.data)
			}
			continue
		}

		next := r.fileName(c.title)
		if next == name {
			continue
		}
		if rec != nil {
			rec.finish()
		}
		name = next
		rec = r.open(name)
	}
}

func (r *Recorder) fileName(title string) string {
	return path.Join(r.dir, r.station, title+".mp3")
}

// open starts a temp file next to destPath. It returns nil when the file cannot be created,
// in which case data is discarded until the next title.
func (r *Recorder) open(destPath string) *recording {
	if err := os.MkdirAll(path.Dir(destPath), os.ModePerm); err != nil {
		r.logger.Error("error creating station directory", "err", err)
		return nil
	}

	f, err := os.CreateTemp(path.Dir(destPath), "*.mp3.tmp")
	if err != nil {
		r.logger.Error("error creating temp file", "err", err)
		return nil
	}

	r.logger.Debug("starting new recording", "path", destPath)
	return &recording{
		r:        r,
		f:        f,
		destPath: destPath,
		pending:  make([]byte, 0, 4096),
		writeBuf: make([]byte, 0, r.writeBufSize),
	}
}

// commitTempFile renames tempPath to destPath only if dest doesn't exist or
// the temp file is larger (so a short reconnect doesn't overwrite a good recording).
func (r *Recorder) commitTempFile(tempPath, destPath string) {
	tempInfo, err := os.Stat(tempPath)
	if err != nil {
		r.logger.Error("error stating temp file", "err", err, "path", tempPath)
		_ = os.Remove(tempPath)
		return
	}
	if tempInfo.Size() == 0 {
		_ = os.Remove(tempPath)
		return
	}

	destInfo, err := os.Stat(destPath)
	if err != nil && !os.IsNotExist(err) {
		r.logger.Error("error stating dest file", "err", err, "path", destPath)
		_ = os.Remove(tempPath)
		return
	}

	if err == nil && tempInfo.Size() <= destInfo.Size() {
		_ = os.Remove(tempPath)
		r.logger.Debug("discarded shorter recording", "path", destPath, "temp_size", tempInfo.Size(), "existing_size", destInfo.Size())
		return
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		r.logger.Error("error renaming temp to dest", "err", err, "temp", tempPath, "dest", destPath)
		_ = os.Remove(tempPath)
		return
	}
	r.logger.Debug("saved recording", "path", destPath, "size", tempInfo.Size())
}

// recording is one temp file in progress. The file starts at the first frame sync seen so it
// opens cleanly in a player.
type recording struct {
	r        *Recorder
	f        *os.File
	destPath string

	synced   bool
	failed   bool
	pending  []byte // data held until the first frame sync
	writeBuf []byte // batch writes to reduce disk I/O
}

func (rec *recording) write(b []byte) {
	if rec.failed {
		return
	}

	if !rec.synced {
		rec.pending = append(rec.pending, b...)
		if i := audio.FindFrameSync(rec.pending); i >= 0 {
			b = rec.pending[i:]
		} else if len(rec.pending) > maxSyncSearch {
			rec.r.logger.Warn("no MP3 frame sync found, recording anyway", "path", rec.destPath)
			b = rec.pending
		} else {
			return
		}
		rec.synced = true
		rec.pending = nil
	}

	rec.writeBuf = append(rec.writeBuf, b...)
	if len(rec.writeBuf) >= rec.r.writeBufSize {
		rec.flush()
	}
}

func (rec *recording) flush() {
	if rec.failed || len(rec.writeBuf) == 0 {
		return
	}
	if _, err := rec.f.Write(rec.writeBuf); err != nil {
		rec.r.logger.Error("error writing to file", "err", err)
		rec.failed = true
	}
	rec.writeBuf = rec.writeBuf[:0]
}

func (rec *recording) finish() {
	rec.flush()
	if err := rec.f.Sync(); err != nil {
		rec.r.logger.Error("error syncing file", "err", err)
	}
	if err := rec.f.Close(); err != nil {
		rec.r.logger.Error("error closing file", "err", err)
	}
	rec.r.commit(rec.f.Name(), rec.destPath)
}

// sanitizeName makes s safe to use as a single path element.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', 0:
			return '-'
		}
		return c
	}, s)
	if s == "." || s == ".." {
		return ""
	}
	return s
}
