// Package commands implements the user-invocable svgviewer commands: open
// previews and export panels, rasterise documents, and copy data URIs.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/svgview/internal/apperr"
	"github.com/starford/svgview/internal/clipboard"
	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/raster"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/svgdoc"
	"github.com/starford/svgview/internal/view"
)

// Command ids.
const (
	Open       = "svgviewer.open"
	OpenFile   = "svgviewer.openfile"
	OpenExport = "svgviewer.openexport"
	SaveAs     = "svgviewer.saveas"
	SaveAsSize = "svgviewer.saveassize"
	CopyDUI    = "svgviewer.copydui"
	SaveDU     = "svgviewer.savedu"
)

// NotSVGMessage warns that a command target is not an SVG document.
const NotSVGMessage = "Active editor doesn't show a SVG document - no properties to preview."

const rasterParallelism = 4

// IDs returns every command id.
func IDs() []string {
	ids := []string{Open, OpenFile, OpenExport, SaveAs, SaveAsSize, CopyDUI, SaveDU}
	sort.Strings(ids)
	return ids
}

// Args are the inputs of a command. Unused fields are ignored.
type Args struct {
	URIs    []string `json:"uris"`
	Path    string   `json:"path"`
	Width   string   `json:"width"`
	Height  string   `json:"height"`
	DataURL string   `json:"dataUrl"`
	Output  string   `json:"output"`
}

// Result reports what a command did.
type Result struct {
	Panels  []string `json:"panels,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
	DataURI string   `json:"dataUri,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// Documents loads documents and resolves paths inside the workspace.
type Documents interface {
	host.Workspace
	Resolve(path string) (resource.Resource, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Documents  Documents
	Previews   *view.PreviewManager
	Exports    *view.ExportManager
	Settings   settings.Source
	Rasterizer raster.Rasterizer
	Clipboard  clipboard.Clipboard
	Saver      *Saver
	Notifier   host.Notifier
	Loop       *loop.Loop
	Logger     *slog.Logger
}

// Service runs commands.
type Service struct {
	deps Deps

	mu    sync.Mutex
	files map[string]resource.Resource
}

// New returns a command service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, files: make(map[string]resource.Resource)}
}

// Execute runs the command id. prompt answers the size prompts of
// saveassize; when nil, args.Width and args.Height are used.
func (s *Service) Execute(ctx context.Context, id string, args Args, prompt Prompter) (Result, error) {
	s.deps.Logger.Debug("commands: execute", slog.String("command", id), slog.Int("uris", len(args.URIs)))
	switch id {
	case Open:
		return s.open(ctx, args)
	case OpenFile:
		return s.openFile(ctx, args)
	case OpenExport:
		return s.openExport(ctx, args)
	case SaveAs:
		return s.saveAs(ctx, args, 0, 0)
	case SaveAsSize:
		if prompt == nil {
			prompt = Values{"width": args.Width, "height": args.Height}
		}
		w, h, err := s.askSize(ctx, prompt)
		if err != nil {
			return Result{}, err
		}
		return s.saveAs(ctx, args, w, h)
	case CopyDUI:
		return s.copyDataURI(ctx, args)
	case SaveDU:
		if s.deps.Saver == nil {
			return Result{}, fmt.Errorf("commands: %s: no saver", id)
		}
		if err := s.deps.Saver.Save(ctx, args.DataURL, args.Output); err != nil {
			return Result{}, err
		}
		return Result{Outputs: []string{args.Output}}, nil
	default:
		return Result{}, fmt.Errorf("commands: %q: %w", id, apperr.ErrUnknownCommand)
	}
}

func (s *Service) open(ctx context.Context, args Args) (Result, error) {
	docs, skipped, err := s.eligible(ctx, args.URIs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: skipped}
	if len(docs) == 0 {
		return res, nil
	}
	col := s.deps.Settings.Viewer().PreviewColumn
	err = s.deps.Loop.Do(ctx, func() {
		for _, d := range docs {
			v := s.deps.Previews.View(d.Resource, col)
			res.Panels = append(res.Panels, v.Panel().ID())
		}
	})
	return res, err
}

func (s *Service) openFile(ctx context.Context, args Args) (Result, error) {
	if args.Path == "" {
		return Result{}, fmt.Errorf("commands: openfile: path is required: %w", apperr.ErrNotFound)
	}
	rel := filepath.ToSlash(filepath.Clean(args.Path))

	s.mu.Lock()
	r, ok := s.files[rel]
	s.mu.Unlock()
	if !ok {
		var err error
		r, err = s.deps.Documents.Resolve(args.Path)
		if err != nil {
			return Result{}, s.fail(err)
		}
		s.mu.Lock()
		if cached, hit := s.files[rel]; hit {
			r = cached
		} else {
			s.files[rel] = r
		}
		s.mu.Unlock()
	}
	return s.open(ctx, Args{URIs: []string{r.String()}})
}

func (s *Service) openExport(ctx context.Context, args Args) (Result, error) {
	docs, skipped, err := s.eligible(ctx, args.URIs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: skipped}
	if len(docs) == 0 {
		return res, nil
	}
	col := s.deps.Settings.Viewer().PreviewColumn
	err = s.deps.Loop.Do(ctx, func() {
		for _, d := range docs {
			v := s.deps.Exports.View(d.Resource, col)
			res.Panels = append(res.Panels, v.Panel().ID())
		}
	})
	return res, err
}

func (s *Service) askSize(ctx context.Context, prompt Prompter) (int, int, error) {
	var size [2]int
	for i, name := range []string{"width", "height"} {
		v, err := prompt.Prompt(ctx, name)
		if err != nil {
			return 0, 0, err
		}
		if err := ValidateSize(v); err != nil {
			s.deps.Notifier.Warn(SizeMessage)
			return 0, 0, fmt.Errorf("commands: %s %q: %w", name, v, apperr.ErrInvalidSize)
		}
		size[i] = parseSize(v)
	}
	return size[0], size[1], nil
}

func (s *Service) saveAs(ctx context.Context, args Args, width, height int) (Result, error) {
	docs, skipped, err := s.eligible(ctx, args.URIs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: skipped}
	outputs := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rasterParallelism)
	for i, d := range docs {
		g.Go(func() error {
			out := raster.OutputSpec{Path: d.Resource.WithExt(".png"), Width: width, Height: height}
			if err := s.rasterize(gctx, d.Text, out); err != nil {
				s.deps.Notifier.Error(err.Error())
				return err
			}
			outputs[i] = out.Path
			s.deps.Notifier.Info("export done. " + out.Path)
			return nil
		})
	}
	err = g.Wait()
	for _, o := range outputs {
		if o != "" {
			res.Outputs = append(res.Outputs, o)
		}
	}
	return res, err
}

func (s *Service) rasterize(ctx context.Context, text string, out raster.OutputSpec) error {
	tmp, err := os.CreateTemp("", "svgview-*.svg")
	if err != nil {
		return fmt.Errorf("commands: temp svg: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(svgdoc.AddNamespace(text)); err != nil {
		tmp.Close()
		return fmt.Errorf("commands: temp svg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("commands: temp svg: %w", err)
	}

	if err := s.deps.Rasterizer.Render(ctx, tmp.Name(), out); err != nil {
		return err
	}
	s.deps.Logger.Info("commands: png exported", slog.String("output", out.String()))
	return nil
}

func (s *Service) copyDataURI(ctx context.Context, args Args) (Result, error) {
	if len(args.URIs) > 1 {
		args.URIs = args.URIs[:1]
	}
	docs, skipped, err := s.eligible(ctx, args.URIs)
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: skipped}
	if len(docs) == 0 {
		return res, nil
	}
	uri := svgdoc.DataURI(docs[0].Text)
	if err := s.deps.Clipboard.WriteText(uri); err != nil {
		s.deps.Notifier.Error(err.Error())
		return res, fmt.Errorf("commands: clipboard: %w", err)
	}
	res.DataURI = uri
	return res, nil
}

// eligible loads the targets of a command and keeps the SVG documents.
// Without explicit URIs the active editor is used.
func (s *Service) eligible(ctx context.Context, uris []string) ([]host.Document, []string, error) {
	targets, err := s.targets(uris)
	if err != nil {
		return nil, nil, err
	}

	var docs []host.Document
	var skipped []string
	for _, r := range targets {
		doc, err := s.deps.Documents.OpenTextDocument(ctx, r)
		if err != nil {
			return nil, nil, s.fail(err)
		}
		if !svgdoc.IsSVG(doc.Text) {
			s.deps.Notifier.Warn(NotSVGMessage)
			skipped = append(skipped, r.Path())
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}

func (s *Service) targets(uris []string) ([]resource.Resource, error) {
	if len(uris) == 0 {
		r, ok := s.deps.Documents.ActiveEditor()
		if !ok {
			s.deps.Notifier.Warn(NotSVGMessage)
			return nil, fmt.Errorf("commands: no active editor: %w", apperr.ErrNotSVG)
		}
		return []resource.Resource{r}, nil
	}

	out := make([]resource.Resource, 0, len(uris))
	for _, u := range uris {
		r, err := s.resolve(u)
		if err != nil {
			return nil, s.fail(err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) resolve(u string) (resource.Resource, error) {
	if !strings.Contains(u, "://") {
		return s.deps.Documents.Resolve(u)
	}
	r, err := resource.Parse(u)
	if err != nil {
		return resource.Resource{}, err
	}
	return s.deps.Documents.Resolve(r.Path())
}

// fail surfaces a load or resolve failure as an error notification.
// Requests outside the workspace and cancelled contexts are only returned.
func (s *Service) fail(err error) error {
	if errors.Is(err, apperr.ErrOutsideWorkspace) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.deps.Notifier.Error(err.Error())
	return err
}

// IsUserError reports whether err stems from bad command input rather than
// a failure.
func IsUserError(err error) bool {
	return errors.Is(err, apperr.ErrNotSVG) ||
		errors.Is(err, apperr.ErrInvalidSize) ||
		errors.Is(err, apperr.ErrCancelled) ||
		errors.Is(err, apperr.ErrUnknownCommand)
}
