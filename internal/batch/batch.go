// Package batch fingerprints many images in parallel and finds
// near-duplicate pairs among them.
package batch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/phash/internal/cache"
	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/imageio"
	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/trace"
)

// Cache is consulted before decoding. Keys are a content digest and
// phash.Config.Key, so changing the grid or filter never returns stale hashes.
type Cache interface {
	Lookup(ctx context.Context, digest, configKey string) (phash.Fingerprint, bool, error)
	Store(ctx context.Context, digest, configKey string, fp phash.Fingerprint) error
}

// Options configure Run. The zero value hashes with the default config on
// GOMAXPROCS workers without a cache.
type Options struct {
	Hasher  *phash.Hasher
	Decoder *imageio.Decoder
	Workers int
	Cache   Cache
	// Progress is called after each file with the number finished so far.
	Progress func(done, total int)
}

// Result is the outcome for one input path. Err is set instead of Hash when
// the file could not be read, decoded or hashed.
type Result struct {
	Path   string
	Hash   phash.Fingerprint
	Format string
	Cached bool
	Err    error
}

// OK reports whether the file was hashed.
func (r Result) OK() bool { return r.Err == nil }

// Run hashes every path and returns results in input order. Per-file
// failures are recorded in Result.Err; the returned error is non-nil only
// when ctx is cancelled.
func Run(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	opts = opts.withDefaults()
	results := make([]Result, len(paths))

	ctx, span := trace.StartSpan(ctx, "batch_run")
	defer span.End()
	span.SetAttr("files", len(paths))
	span.SetAttr("workers", opts.Workers)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = hashFile(gctx, p, opts)
			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(paths))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	span.SetAttr("failed", failed)
	return results, nil
}

func hashFile(ctx context.Context, path string, opts Options) Result {
	res := Result{Path: path}
	log := trace.Logger(ctx).With("path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		code := apperrors.CodeDecodeFailure
		if errors.Is(err, fs.ErrNotExist) {
			code = apperrors.CodeNotFound
		}
		res.Err = apperrors.Wrap(err, code, "cannot open image").WithMetadata("path", path)
		return res
	}

	key := opts.Hasher.Config().Key()
	var digest string
	if opts.Cache != nil {
		digest = cache.Digest(data)
		fp, ok, err := opts.Cache.Lookup(ctx, digest, key)
		if err != nil {
			log.Warn("cache lookup failed", "error", err)
		} else if ok {
			res.Hash, res.Cached = fp, true
			return res
		}
	}

	img, format, err := opts.Decoder.DecodeBytes(data)
	res.Format = format
	if err != nil {
		res.Err = apperrors.Wrap(err, apperrors.CodeOf(err), "cannot open image").WithMetadata("path", path)
		return res
	}

	fp, err := opts.Hasher.Hash(img)
	if err != nil {
		res.Err = err
		return res
	}
	res.Hash = fp

	if opts.Cache != nil {
		if err := opts.Cache.Store(ctx, digest, key, fp); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}
	log.Debug("hashed", "hash", fp.Hex(), "format", format)
	return res
}

func (o Options) withDefaults() Options {
	if o.Hasher == nil {
		o.Hasher = phash.Default()
	}
	if o.Decoder == nil {
		o.Decoder = imageio.NewDecoder(imageio.DefaultMaxPixels)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Expand replaces each directory in paths with the image files beneath it,
// in lexical order. Plain files are kept as given, even without an image
// extension, so the caller sees a decode error for them. Duplicates are
// dropped.
func Expand(paths []string) ([]string, error) {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			// missing files surface as per-file NotFound results
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && imageio.IsImagePath(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "walk directory").WithMetadata("path", root)
		}
	}
	return out, nil
}
