// File: internal/usecase/forwarder.go
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"coach-connect/internal/domain/model"
	"coach-connect/internal/domain/ports/adapter"
	"coach-connect/internal/domain/ports/repository"
	"coach-connect/internal/infra/logging"
	"coach-connect/internal/infra/metrics"
	"coach-connect/internal/infra/worker"
)

const bookkeepingTimeout = 5 * time.Second

// TaskQueue runs fire-and-forget work off the request path.
type TaskQueue interface {
	Submit(task worker.Task) error
}

// ForwardJob is one questionnaire to hand to the fitness API.
type ForwardJob struct {
	Flow     string
	Endpoint string
	Token    string
	UserID   string
	Records  []model.QARecord
}

// Forwarder posts completed questionnaires in the background. Every outcome
// is logged, counted and audited; none is ever returned to the chat client
// and nothing is retried.
type Forwarder struct {
	api      adapter.FitnessAPI
	repo     repository.DeliveryRepository
	guard    repository.DeliveryGuard
	queue    TaskQueue
	timeout  time.Duration
	dedupTTL time.Duration
	devMode  bool
	log      *zerolog.Logger
}

// NewForwarder wires the forwarder. repo and guard may be nil.
func NewForwarder(
	api adapter.FitnessAPI,
	repo repository.DeliveryRepository,
	guard repository.DeliveryGuard,
	queue TaskQueue,
	timeout, dedupTTL time.Duration,
	devMode bool,
	log *zerolog.Logger,
) *Forwarder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := log.With().Str("component", "forwarder").Logger()
	return &Forwarder{
		api:      api,
		repo:     repo,
		guard:    guard,
		queue:    queue,
		timeout:  timeout,
		dedupTTL: dedupTTL,
		devMode:  devMode,
		log:      &l,
	}
}

// Enqueue schedules delivery and reports whether the job was accepted.
func (f *Forwarder) Enqueue(job ForwardJob) bool {
	log := f.jobLogger(job)
	payload, err := model.MarshalQA(job.Records)
	if err != nil {
		log.Error().Err(err).Msg("forward payload encoding failed")
		return false
	}
	if err := f.queue.Submit(func(ctx context.Context) error {
		f.deliver(ctx, job, payload)
		return nil
	}); err != nil {
		log.Warn().Err(err).Msg("forward dropped")
		metrics.IncForwardDelivery(job.Endpoint, string(model.DeliveryDropped))
		go func() {
			ctx, cancel := bookkeepingContext()
			defer cancel()
			f.audit(ctx, job, payload, model.DeliveryDropped, 0, err)
		}()
		return false
	}
	log.Debug().Int("records", len(job.Records)).Msg("forward queued")
	return true
}

func (f *Forwarder) deliver(ctx context.Context, job ForwardJob, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	log := f.jobLogger(job)
	if f.devMode {
		log.Debug().RawJSON("payload", payload).Msg("forwarding questionnaire")
	}

	key, token := "", ""
	if f.guard != nil && f.dedupTTL > 0 {
		key = dedupKey(job.Endpoint, job.Token, payload)
		tok, ok, err := f.guard.Acquire(ctx, key, f.dedupTTL)
		switch {
		case err != nil:
			metrics.IncCacheRequest("dedup", "error")
			log.Warn().Err(err).Msg("dedup guard unavailable, delivering anyway")
			key = ""
		case !ok:
			metrics.IncCacheRequest("dedup", "hit")
			metrics.IncForwardDelivery(job.Endpoint, string(model.DeliveryDuplicate))
			log.Info().Msg("identical questionnaire already delivered, skipping")
			f.audit(ctx, job, payload, model.DeliveryDuplicate, 0, nil)
			return
		default:
			metrics.IncCacheRequest("dedup", "miss")
			token = tok
		}
	}

	res, err := f.api.Submit(ctx, job.Endpoint, job.Token, payload)

	// ctx may have expired with the POST; release and audit must still land
	bctx, bcancel := bookkeepingContext()
	defer bcancel()
	status := model.DeliveryDelivered
	if err != nil {
		status = model.DeliveryFailed
		ev := log.Error().Err(err).Int("http_status", res.StatusCode)
		if len(res.Body) > 0 {
			ev = ev.RawJSON("response", res.Body)
		}
		ev.Msg("forward failed")
		if key != "" {
			if rerr := f.guard.Release(bctx, key, token); rerr != nil {
				log.Warn().Err(rerr).Msg("dedup release failed")
			}
		}
	} else {
		ev := log.Info().Int("http_status", res.StatusCode).Int("records", len(job.Records))
		if len(res.Body) > 0 {
			ev = ev.RawJSON("response", res.Body)
		}
		ev.Msg("forward delivered")
	}
	metrics.IncForwardDelivery(job.Endpoint, string(status))
	f.audit(bctx, job, payload, status, res.StatusCode, err)
}

func bookkeepingContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), bookkeepingTimeout)
}

func (f *Forwarder) audit(ctx context.Context, job ForwardJob, payload []byte, status model.DeliveryStatus, httpStatus int, cause error) {
	if f.repo == nil {
		return
	}
	d := &model.Delivery{
		ID:         ulid.Make().String(),
		Flow:       job.Flow,
		Endpoint:   job.Endpoint,
		UserID:     job.UserID,
		Records:    len(job.Records),
		Payload:    payload,
		Status:     status,
		HTTPStatus: httpStatus,
		CreatedAt:  time.Now().UTC(),
	}
	if cause != nil {
		d.Error = cause.Error()
	}
	if err := f.repo.Save(ctx, repository.NoTX, d); err != nil {
		f.log.Warn().Err(err).Str("delivery_id", d.ID).Msg("delivery audit write failed")
	}
}

func (f *Forwarder) jobLogger(job ForwardJob) *zerolog.Logger {
	l := f.log.With().
		Str("flow", job.Flow).
		Str("endpoint", job.Endpoint).
		Str("user_id", job.UserID).
		Str("token", logging.Redact(job.Token, f.devMode)).
		Logger()
	return &l
}

// dedupKey identifies a payload for a given caller and destination.
func dedupKey(endpoint, token string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write(payload)
	return "dedup:" + hex.EncodeToString(h.Sum(nil))
}
