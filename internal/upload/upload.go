// Package upload validates uploaded files and stores them under collision-free names.
//
// Files are first written to a hidden temp file inside the destination directory
// and then renamed into place, so a final "<id>.<ext>" name only ever refers to a
// complete file.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrStorage wraps filesystem failures while persisting a file.
var ErrStorage = errors.New("store uploaded file")

// ValidationError reports an upload rejected before anything was written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

var (
	descriptionExtensions = map[string]bool{"md": true, "txt": true}
	imageExtensions       = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true}
	extensionPattern      = regexp.MustCompile(`^[a-z0-9]{1,8}$`)
)

const defaultConcurrency = 4

// Result identifies one stored file.
type Result struct {
	StoredPath  string `json:"stored_path"`
	GeneratedID string `json:"generated_id"`
}

// Failure describes an accepted file whose copy failed.
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Batch is the per-file outcome of a multi-file upload. Skipped files, those that
// are not images, appear in neither list.
type Batch struct {
	Uploaded []Result
	Failed   []Failure
	Skipped  int
}

// Accepted is the number of files that passed validation.
func (b Batch) Accepted() int {
	return len(b.Uploaded) + len(b.Failed)
}

// Ingestor stores description and image uploads in their fixed directories.
type Ingestor struct {
	descriptionDir string
	imageDir       string
	concurrency    int
	newID          func() string
	log            *slog.Logger
}

// NewIngestor creates the destination directories if needed.
func NewIngestor(descriptionDir, imageDir string, log *slog.Logger) (*Ingestor, error) {
	for _, dir := range []string{descriptionDir, imageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return &Ingestor{
		descriptionDir: descriptionDir,
		imageDir:       imageDir,
		concurrency:    defaultConcurrency,
		newID:          uuid.NewString,
		log:            log,
	}, nil
}

// SaveDescription validates and stores a single .md or .txt description file.
func (in *Ingestor) SaveDescription(fh *multipart.FileHeader) (Result, error) {
	if fh == nil {
		return Result{}, invalid("file not found in request")
	}

	declared := strings.ToLower(fh.Header.Get("Content-Type"))
	if !strings.HasPrefix(declared, "text/") {
		return Result{}, invalid("description must be a text file, got %q", declared)
	}

	ext := extension(fh.Filename)
	if ext == "" {
		return Result{}, invalid("description file %q has no extension", fh.Filename)
	}
	if !descriptionExtensions[ext] {
		return Result{}, invalid("wrong file type, upload a .md or .txt file")
	}

	f, err := fh.Open()
	if err != nil {
		return Result{}, fmt.Errorf("%w: open upload: %v", ErrStorage, err)
	}
	defer f.Close()

	sniffed, err := sniff(f)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !inFamily(sniffed, "text/") {
		return Result{}, invalid("description content is %s, not text", sniffed.String())
	}

	return in.store(in.descriptionDir, ext, f)
}

// SaveImages stores every image among files. Non-image parts are skipped and each
// accepted file reports its own outcome.
func (in *Ingestor) SaveImages(ctx context.Context, files []*multipart.FileHeader) Batch {
	type outcome struct {
		result  *Result
		failure *Failure
	}
	outcomes := make([]outcome, len(files))

	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			res, accepted, err := in.saveImage(fh)
			switch {
			case !accepted:
			case err != nil:
				in.log.WarnContext(ctx, "image upload failed",
					"filename", fh.Filename,
					"error", err)
				outcomes[i].failure = &Failure{Filename: fh.Filename, Error: err.Error()}
			default:
				outcomes[i].result = &res
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := Batch{Uploaded: []Result{}, Failed: []Failure{}}
	for _, o := range outcomes {
		switch {
		case o.result != nil:
			batch.Uploaded = append(batch.Uploaded, *o.result)
		case o.failure != nil:
			batch.Failed = append(batch.Failed, *o.failure)
		default:
			batch.Skipped++
		}
	}
	return batch
}

// saveImage reports accepted=false for files that are not images.
func (in *Ingestor) saveImage(fh *multipart.FileHeader) (Result, bool, error) {
	declared := strings.ToLower(fh.Header.Get("Content-Type"))
	if !strings.HasPrefix(declared, "image/") {
		return Result{}, false, nil
	}

	f, err := fh.Open()
	if err != nil {
		return Result{}, true, fmt.Errorf("%w: open upload: %v", ErrStorage, err)
	}
	defer f.Close()

	sniffed, err := sniff(f)
	if err != nil {
		return Result{}, true, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	// Only raster formats are kept; SVG and other image/* types can carry markup.
	sniffedExt := strings.TrimPrefix(sniffed.Extension(), ".")
	if !inFamily(sniffed, "image/") || !imageExtensions[sniffedExt] {
		return Result{}, false, nil
	}

	ext := extension(fh.Filename)
	if !imageExtensions[ext] {
		ext = sniffedExt
	}

	res, err := in.store(in.imageDir, ext, f)
	return res, true, err
}

// Remove deletes stored files. Missing files are ignored.
func (in *Ingestor) Remove(results []Result) {
	for _, r := range results {
		if err := os.Remove(r.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			in.log.Warn("failed to remove uploaded file", "path", r.StoredPath, "error", err)
		}
	}
}

func (in *Ingestor) store(dir, ext string, src io.Reader) (Result, error) {
	id := in.newID()
	dest := filepath.Join(dir, id+"."+ext)

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("%w: copy: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("%w: close temp file: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("%w: rename: %v", ErrStorage, err)
	}

	return Result{StoredPath: dest, GeneratedID: id}, nil
}

// extension returns the lower-cased extension without the dot, or "" when the
// name has none or it contains anything but letters and digits.
func extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), "."))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}

func sniff(f multipart.File) (*mimetype.MIME, error) {
	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	return mtype, nil
}

func inFamily(mtype *mimetype.MIME, prefix string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), prefix) {
			return true
		}
	}
	return false
}
