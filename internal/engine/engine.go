package engine

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/storage"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

// Preparer converts input media into something the recognizer accepts,
// writing the result into dir.
type Preparer interface {
	Prepare(ctx context.Context, inputPath, dir string) (string, error)
}

// Engine turns recognizer output into transcripts and caption tracks.
// It holds no per-request state and is safe for concurrent use when its
// collaborators are.
type Engine struct {
	recognizer transcribe.Recognizer
	store      storage.BlobStore
	preparer   Preparer
	tokenizer  subtitle.SentenceTokenizer
	logger     *logging.Logger
	tempDir    string
	maxChars   int
	assTitle   string
}

type Option func(*Engine)

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPreparer normalizes media before recognition.
func WithPreparer(p Preparer) Option {
	return func(e *Engine) { e.preparer = p }
}

func WithTokenizer(t subtitle.SentenceTokenizer) Option {
	return func(e *Engine) { e.tokenizer = t }
}

// WithTempDir sets the parent of per-request workspaces. The system temp
// directory is used otherwise.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tempDir = dir }
}

// WithMaxChars sets the line budget used when a request has none.
func WithMaxChars(n int) Option {
	return func(e *Engine) { e.maxChars = n }
}

func WithASSTitle(title string) Option {
	return func(e *Engine) { e.assTitle = title }
}

// New builds an engine. store may be nil, in which case artifacts are
// rendered but never published and media must be local.
func New(recognizer transcribe.Recognizer, store storage.BlobStore, opts ...Option) (*Engine, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	e := &Engine{
		recognizer: recognizer,
		store:      store,
		logger:     logging.Nop(),
		maxChars:   subtitle.DefaultMaxChars,
		assTitle:   subtitle.DefaultASSTitle,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.tokenizer == nil {
		tok, err := subtitle.NewPunktTokenizer()
		if err != nil {
			return nil, err
		}
		e.tokenizer = tok
	}

	return e, nil
}

// Run processes one request end to end. Temporary files are confined to
// a workspace that is removed before Run returns, on every path.
func (e *Engine) Run(ctx context.Context, req Request) (result *Result, err error) {
	if !req.Output.Valid() {
		return nil, wrap(KindInvalidOutput, StageValidate, req.Output,
			fmt.Errorf("unsupported output %q, must be one of transcript, srt, vtt, ass", req.Output))
	}
	if strings.TrimSpace(req.Media) == "" {
		return nil, wrap(KindIO, StageValidate, req.Output, fmt.Errorf("media is required"))
	}

	log := e.logger.With("output", string(req.Output))

	ws, err := newWorkspace(e.tempDir)
	if err != nil {
		return nil, wrap(KindIO, StagePrepare, req.Output, err)
	}
	defer func() {
		if cerr := ws.cleanup(); cerr != nil {
			log.Warnw("Failed to clean up workspace", "dir", ws.dir, "error", cerr)
		}
	}()

	mediaPath, err := e.resolveMedia(ctx, req, ws)
	if err != nil {
		return nil, err
	}

	log.Debugw("Processing media", "path", mediaPath)

	switch req.Output {
	case OutputTranscript:
		result, err = e.runTranscript(ctx, req, mediaPath, ws, log)
	case OutputSRT, OutputVTT:
		result, err = e.runSubtitle(ctx, req, mediaPath, ws, log)
	case OutputASS:
		result, err = e.runASS(ctx, req, mediaPath, ws, log)
	}
	if err != nil {
		log.Errorw("Run failed", "error", err)
		return nil, err
	}

	log.Infow("Run complete", "warnings", len(result.Warnings))
	return result, nil
}

func (e *Engine) resolveMedia(ctx context.Context, req Request, ws *workspace) (string, error) {
	path := req.Media
	if isRemote(path) {
		if e.store == nil {
			return "", wrap(KindIO, StageDownload, req.Output,
				fmt.Errorf("cannot fetch %s without a blob store", path))
		}
		local, err := e.store.Download(ctx, path, ws.dir)
		if err != nil {
			return "", wrap(KindIO, StageDownload, req.Output, err)
		}
		path = local
	} else if _, err := os.Stat(path); err != nil {
		return "", wrap(KindIO, StageDownload, req.Output, fmt.Errorf("media not found: %w", err))
	}

	if e.preparer != nil {
		prepared, err := e.preparer.Prepare(ctx, path, ws.dir)
		if err != nil {
			return "", wrap(KindIO, StagePrepare, req.Output, err)
		}
		path = prepared
	}

	return path, nil
}

func isRemote(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "s3", "file":
		return true
	default:
		return false
	}
}

func (e *Engine) recognize(ctx context.Context, req Request, mediaPath string, words bool) ([]subtitle.Segment, error) {
	segments, err := e.recognizer.Recognize(ctx, mediaPath, transcribe.Options{
		WordTimestamps: words,
		Language:       req.Language,
	})
	if err != nil {
		return nil, wrap(KindRecognition, StageRecognize, req.Output, err)
	}
	e.logger.Debugw("Recognition complete",
		"output", string(req.Output),
		"segments", len(segments),
		"word_timestamps", words)
	return segments, nil
}

func (e *Engine) runTranscript(ctx context.Context, req Request, mediaPath string, ws *workspace, log *logging.Logger) (*Result, error) {
	segments, err := e.recognize(ctx, req, mediaPath, false)
	if err != nil {
		return nil, err
	}

	res := &Result{Output: OutputTranscript}
	units := e.sentences(segments)

	lines := make([]string, 0, len(units))
	entries := make([]subtitle.Entry, 0, len(units))
	for _, u := range units {
		start := subtitle.FormatClock(u.Start)
		end := subtitle.FormatClock(u.End)

		lines = append(lines, fmt.Sprintf("%s - %s: %s", start, end, u.Text))
		res.Timestamps = append(res.Timestamps, start+"-"+end)
		res.TextSegments = append(res.TextSegments, u.Text)
		res.DurationSentences = append(res.DurationSentences, formatDuration(u.Duration))

		pair := subtitle.SplitSentence(u)
		res.DurationSplitSentence = append(res.DurationSplitSentence,
			formatDuration(pair.FirstDuration), formatDuration(pair.SecondDuration))
		res.SplitSentences = append(res.SplitSentences, pair.First, pair.Second)

		entries = append(entries, subtitle.Entry{
			Index: len(entries) + 1,
			Start: u.Start,
			End:   u.End,
			Text:  u.Text,
		})
	}
	res.Transcript = strings.Join(lines, "\n")

	if req.WordsPerCaption > 0 {
		entries = subtitle.LineEntries(subtitle.GroupByCount(subtitle.WordsOf(segments), req.WordsPerCaption))
	}
	res.SRT = subtitle.RenderSRT(&subtitle.Subtitle{Entries: entries, Language: req.Language})

	words := subtitle.WordsOf(segments)
	if !subtitle.HasWordTimings(segments) {
		wordSegments, err := e.recognize(ctx, req, mediaPath, true)
		if err != nil {
			return nil, err
		}
		words = subtitle.WordsOf(wordSegments)
	}

	res.ASS = subtitle.RenderASS(subtitle.Group(words, e.lineBudget(req), req.WordsPerCaption), e.assTitle, styleOf(req))

	link, err := e.publish(ctx, ws, ".ass", res.ASS)
	if err != nil {
		aux := wrap(KindAuxiliary, stageOf(err), req.Output, err)
		log.Warnw("Highlight ASS not published", "error", aux)
		res.Warnings = append(res.Warnings, aux.Error())
	} else {
		res.ASSFileURL = link
	}

	return res, nil
}

func (e *Engine) runSubtitle(ctx context.Context, req Request, mediaPath string, ws *workspace, log *logging.Logger) (*Result, error) {
	segments, err := e.recognize(ctx, req, mediaPath, false)
	if err != nil {
		return nil, err
	}

	var entries []subtitle.Entry
	if req.SentenceLevel {
		for _, u := range e.sentences(segments) {
			entries = append(entries, subtitle.Entry{
				Index: len(entries) + 1,
				Start: u.Start,
				End:   u.End,
				Text:  u.Text,
			})
		}
	} else {
		entries = subtitle.EntriesFromSegments(segments)
	}

	sub := &subtitle.Subtitle{
		Entries:  entries,
		Language: req.Language,
		Format:   string(req.Output),
	}

	format := subtitle.Format(req.Output)
	w, err := subtitle.NewWriter(format)
	if err != nil {
		return nil, wrap(KindInvalidOutput, StageRender, req.Output, err)
	}

	res := &Result{Output: req.Output}
	text := w.Render(sub)
	if format == subtitle.FormatVTT {
		res.VTT = text
	} else {
		res.SRT = text
	}

	link, err := e.publish(ctx, ws, subtitle.GetExtensionForFormat(format), text)
	if err != nil {
		return nil, wrap(KindIO, stageOf(err), req.Output, err)
	}
	res.FileURL = link
	log.Debugw("Subtitle published", "entries", len(entries), "url", link)

	return res, nil
}

func (e *Engine) runASS(ctx context.Context, req Request, mediaPath string, ws *workspace, log *logging.Logger) (*Result, error) {
	segments, err := e.recognize(ctx, req, mediaPath, true)
	if err != nil {
		return nil, err
	}

	lines := subtitle.Group(subtitle.WordsOf(segments), e.lineBudget(req), req.WordsPerCaption)
	res := &Result{
		Output: OutputASS,
		ASS:    subtitle.RenderASS(lines, e.assTitle, styleOf(req)),
	}

	link, err := e.publish(ctx, ws, ".ass", res.ASS)
	if err != nil {
		return nil, wrap(KindIO, stageOf(err), req.Output, err)
	}
	res.FileURL = link
	log.Debugw("ASS published", "lines", len(lines), "url", link)

	return res, nil
}

func (e *Engine) sentences(segments []subtitle.Segment) []subtitle.SentenceUnit {
	seg := subtitle.NewSegmenter(e.tokenizer)
	var units []subtitle.SentenceUnit
	for _, s := range segments {
		for _, u := range seg.Split(s) {
			if u.Text == "" {
				continue
			}
			units = append(units, u)
		}
	}
	return units
}

// publish writes content to the workspace and uploads it. Without a
// store nothing is written and the URL is empty.
func (e *Engine) publish(ctx context.Context, ws *workspace, ext, content string) (string, error) {
	if e.store == nil {
		return "", nil
	}
	path, err := ws.write(ext, content)
	if err != nil {
		return "", &stageError{stage: StageRender, err: err}
	}
	link, err := e.store.Upload(ctx, path)
	if err != nil {
		return "", &stageError{stage: StageUpload, err: fmt.Errorf("upload %s: %w", filepath.Base(path), err)}
	}
	return link, nil
}

type stageError struct {
	stage Stage
	err   error
}

func (s *stageError) Error() string { return s.err.Error() }
func (s *stageError) Unwrap() error { return s.err }

func stageOf(err error) Stage {
	if se, ok := err.(*stageError); ok {
		return se.stage
	}
	return StageRender
}

func (e *Engine) lineBudget(req Request) int {
	if req.MaxChars > 0 {
		return req.MaxChars
	}
	return e.maxChars
}

func styleOf(req Request) subtitle.StyleOptions {
	if req.Style != nil {
		return *req.Style
	}
	return subtitle.DefaultStyle()
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
