package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ym-bot/internal/format"
	"ym-bot/internal/services/music"
)

// statusTimeout bounds the final status update, which runs even after the
// run's own context has expired.
const statusTimeout = 15 * time.Second

// State is a phase of one delivery run.
type State int

const (
	StateInit State = iota
	StateMetadataFetched
	StateLinkResolved
	StateDownloaded
	StateTagged
	StateSent
	StateCleanedUp
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:            "init",
	StateMetadataFetched: "metadata_fetched",
	StateLinkResolved:    "link_resolved",
	StateDownloaded:      "downloaded",
	StateTagged:          "tagged",
	StateSent:            "sent",
	StateCleanedUp:       "cleaned_up",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Failure classifies why a run ended in StateFailed.
type Failure int

const (
	FailureNone Failure = iota
	FailureNotFound
	FailureLinkUnavailable
	FailureTransport
	FailureUpload
	FailureInternal
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNotFound:
		return "track not found"
	case FailureLinkUnavailable:
		return "no download link"
	case FailureTransport:
		return "download error"
	case FailureUpload:
		return "send error"
	default:
		return "internal error"
	}
}

// Status texts shown to the user.
const (
	textPreparing   = "⏳ Получаем информацию о треке..."
	textNotFound    = "❌ Трек не найден"
	textDownloading = "⬇️ Скачиваем трек:\n%s"
	textTagging     = "📝 Устанавливаем метаданные:\n%s"
	textSending     = "📤 Отправляем файл:\n%s"
	textNoLink      = "❌ Не удалось получить ссылку на скачивание для трека:\n%s"
	textDownloadErr = "❌ Ошибка при скачивании трека:\n%s"
	textSendErr     = "❌ Не удалось отправить аудио:\n%s\n\n%v"
	textInternalErr = "❌ Ошибка при скачивании трека %s:\n%v"
)

// Resolver supplies metadata together with a fresh download link.
type Resolver interface {
	FullInfo(ctx context.Context, trackID string) (music.TrackMetadata, bool)
}

// Acquirer streams a link to a local file. On error no file is left at dest.
type Acquirer interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Tagger writes tags into a downloaded file.
type Tagger interface {
	Apply(path string, meta music.TrackMetadata) bool
}

// DurationReader measures a downloaded file. A Tagger may implement it; it is
// consulted only when the metadata carries no duration.
type DurationReader interface {
	Duration(path string) (time.Duration, error)
}

// StatusMessage is the single mutable progress message of a run.
type StatusMessage interface {
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
}

// Audio describes an upload to the chat.
type Audio struct {
	Path      string
	FileName  string
	Title     string
	Performer string
	Duration  int
}

// Chat is the conversation a run reports to.
type Chat interface {
	SendStatus(ctx context.Context, text string) (StatusMessage, error)
	SendAudio(ctx context.Context, audio Audio) error
}

// Result describes a finished run.
type Result struct {
	RunID   string
	TrackID string
	// State is StateDone or StateFailed.
	State State
	// Reached is the last phase completed before the run ended.
	Reached  State
	Failure  Failure
	Err      error
	TempPath string
	Track    music.TrackMetadata
}

// Delivered reports whether the audio reached the chat.
func (r Result) Delivered() bool {
	return r.State == StateDone
}

// Pipeline runs resolve, download, tag, upload and cleanup for one track.
// A Pipeline holds no per-run state and may serve concurrent runs.
type Pipeline struct {
	resolver Resolver
	acquirer Acquirer
	tagger   Tagger
	tempRoot string
	logger   *zap.Logger
}

// NewPipeline constructs a Pipeline. Temporary files go under os.TempDir().
func NewPipeline(resolver Resolver, acquirer Acquirer, tagger Tagger, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver: resolver,
		acquirer: acquirer,
		tagger:   tagger,
		logger:   logger,
	}
}

// WithTempRoot places run directories under dir.
func (p *Pipeline) WithTempRoot(dir string) *Pipeline {
	p.tempRoot = dir
	return p
}

// Run delivers trackID to chat. When status is nil a new status message is
// sent first. Whatever happens, the temp file is removed and the status
// message is left in exactly one terminal state.
func (p *Pipeline) Run(ctx context.Context, chat Chat, trackID string, status StatusMessage) (res Result) {
	r := &run{
		p:      p,
		chat:   chat,
		status: status,
		res: Result{
			RunID:   uuid.NewString(),
			TrackID: trackID,
			Reached: StateInit,
		},
	}
	r.logger = p.logger.With(zap.String("runID", r.res.RunID), zap.String("trackID", trackID))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("delivery panicked", zap.Any("panic", rec), zap.Stack("stack"))
			r.fail(FailureInternal, fmt.Errorf("panic: %v", rec), fmt.Sprintf(textInternalErr, trackID, rec))
		}
		r.cleanup()
		r.conclude(ctx)
		res = r.res
	}()

	r.execute(ctx)
	return r.res
}

type run struct {
	p      *Pipeline
	chat   Chat
	status StatusMessage
	logger *zap.Logger

	res     Result
	failed  bool
	endText string
	tempDir string
}

func (r *run) execute(ctx context.Context) {
	if r.status == nil {
		status, err := r.chat.SendStatus(ctx, textPreparing)
		if err != nil {
			r.logger.Warn("status message not sent", zap.Error(err))
		} else {
			r.status = status
		}
	}

	meta, ok := r.p.resolver.FullInfo(ctx, r.res.TrackID)
	if !ok {
		r.fail(FailureNotFound, nil, textNotFound)
		return
	}
	r.res.Track = meta
	r.advance(StateMetadataFetched)

	line := format.TrackLine(meta)
	if meta.DownloadLink == "" {
		r.fail(FailureLinkUnavailable, nil, fmt.Sprintf(textNoLink, line))
		return
	}
	r.advance(StateLinkResolved)

	r.progress(ctx, fmt.Sprintf(textDownloading, line))
	dir, err := os.MkdirTemp(r.p.tempRoot, "ym-bot-*")
	if err != nil {
		r.fail(FailureTransport, fmt.Errorf("temp dir: %w", err), fmt.Sprintf(textDownloadErr, line))
		return
	}
	r.tempDir = dir
	fileName := TrackFilename(meta.Title, meta.Artists)
	r.res.TempPath = filepath.Join(dir, fileName)

	if err := r.p.acquirer.Fetch(ctx, meta.DownloadLink, r.res.TempPath); err != nil {
		r.fail(FailureTransport, err, fmt.Sprintf(textDownloadErr, line))
		return
	}
	r.advance(StateDownloaded)

	r.progress(ctx, fmt.Sprintf(textTagging, line))
	if !r.p.tagger.Apply(r.res.TempPath, meta) {
		r.logger.Warn("continuing without tags", zap.String("path", r.res.TempPath))
	}
	r.advance(StateTagged)

	r.progress(ctx, fmt.Sprintf(textSending, line))
	err = r.chat.SendAudio(ctx, Audio{
		Path:      r.res.TempPath,
		FileName:  fileName,
		Title:     meta.Title,
		Performer: meta.ArtistsString(),
		Duration:  r.duration(meta),
	})
	if err != nil {
		r.fail(FailureUpload, err, fmt.Sprintf(textSendErr, line, err))
		return
	}
	r.advance(StateSent)
}

func (r *run) duration(meta music.TrackMetadata) int {
	if secs := meta.DurationSeconds(); secs > 0 {
		return secs
	}
	reader, ok := r.p.tagger.(DurationReader)
	if !ok {
		return 0
	}
	d, err := reader.Duration(r.res.TempPath)
	if err != nil {
		r.logger.Debug("reading duration failed", zap.Error(err))
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

func (r *run) advance(s State) {
	r.res.Reached = s
	r.logger.Debug("delivery advanced", zap.Stringer("state", s))
}

func (r *run) fail(f Failure, err error, text string) {
	if r.failed {
		return
	}
	r.failed = true
	r.res.Failure = f
	r.res.Err = err
	r.endText = text
}

func (r *run) progress(ctx context.Context, text string) {
	if r.status == nil {
		return
	}
	if err := r.status.Edit(ctx, text); err != nil {
		r.logger.Debug("status update failed", zap.Error(err))
	}
}

func (r *run) cleanup() {
	if r.tempDir == "" {
		return
	}
	if err := os.RemoveAll(r.tempDir); err != nil {
		r.logger.Warn("temp cleanup failed", zap.String("dir", r.tempDir), zap.Error(err))
	}
}

// conclude puts the status message into its terminal state.
func (r *run) conclude(ctx context.Context) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()

	if r.failed {
		r.res.State = StateFailed
		r.logger.Warn("delivery failed",
			zap.Stringer("reached", r.res.Reached),
			zap.Stringer("failure", r.res.Failure),
			zap.Error(r.res.Err))
		if r.status != nil {
			if err := r.status.Edit(tctx, r.endText); err != nil {
				r.logger.Warn("final status update failed", zap.Error(err))
			}
		}
		return
	}

	r.res.Reached = StateCleanedUp
	r.res.State = StateDone
	r.logger.Info("track delivered", zap.String("title", r.res.Track.Title))
	if r.status != nil {
		if err := r.status.Delete(tctx); err != nil {
			r.logger.Warn("status message not deleted", zap.Error(err))
		}
	}
}
