package filemanager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/sigdex/core"
)

// Local is a FileManager over a local directory. Artifact names are
// parameterized by shard, e.g. "DocFreqTable-3.csv".
type Local struct {
	root     string
	compress bool
}

var _ FileManager = (*Local)(nil)

// LocalOption configures a Local file manager.
type LocalOption func(*Local)

// WithGzip compresses every artifact and appends ".gz" to its name.
func WithGzip() LocalOption {
	return func(l *Local) {
		l.compress = true
	}
}

// NewLocal creates a Local rooted at dir.
func NewLocal(dir string, optFns ...LocalOption) *Local {
	l := &Local{root: dir}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

// DocumentLengthHistogram implements FileManager.
func (l *Local) DocumentLengthHistogram() FileDescriptor {
	return l.descriptor("DocumentLengthHistogram.csv")
}

// CumulativeTermCounts implements FileManager.
func (l *Local) CumulativeTermCounts(shard core.ShardId) FileDescriptor {
	return l.descriptor(fmt.Sprintf("CumulativeTermCounts-%d.csv", shard))
}

// DocFreqTable implements FileManager.
func (l *Local) DocFreqTable(shard core.ShardId) FileDescriptor {
	return l.descriptor(fmt.Sprintf("DocFreqTable-%d.csv", shard))
}

// IndexedIdfTable implements FileManager.
func (l *Local) IndexedIdfTable(shard core.ShardId) FileDescriptor {
	return l.descriptor(fmt.Sprintf("IndexedIdfTable-%d.bin", shard))
}

func (l *Local) descriptor(name string) FileDescriptor {
	if l.compress {
		name += ".gz"
	}
	return &localFile{
		name:     name,
		path:     filepath.Join(l.root, name),
		compress: l.compress,
	}
}

type localFile struct {
	name     string
	path     string
	compress bool
}

func (f *localFile) Name() string {
	return f.name
}

func (f *localFile) OpenForWrite() (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(f.path)
	if err != nil {
		return nil, err
	}
	if !f.compress {
		return file, nil
	}
	return &stackedWriteCloser{
		Writer:  gzip.NewWriter(file),
		closers: []io.Closer{file},
	}, nil
}

func (f *localFile) OpenForRead() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	if !f.compress {
		return file, nil
	}
	zr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &stackedReadCloser{
		Reader:  zr,
		closers: []io.Closer{file},
	}, nil
}

func (f *localFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *localFile) Delete() error {
	return os.Remove(f.path)
}

// stackedWriteCloser closes the compressor before the underlying file.
type stackedWriteCloser struct {
	Writer  *gzip.Writer
	closers []io.Closer
}

func (s *stackedWriteCloser) Write(p []byte) (int, error) {
	return s.Writer.Write(p)
}

func (s *stackedWriteCloser) Close() error {
	err := s.Writer.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type stackedReadCloser struct {
	Reader  *gzip.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Read(p []byte) (int, error) {
	return s.Reader.Read(p)
}

func (s *stackedReadCloser) Close() error {
	err := s.Reader.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
