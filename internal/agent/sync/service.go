package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/engine"
	"github.com/iudanet/sitesync/internal/models"
	"github.com/iudanet/sitesync/pkg/api"
)


// Service определяет интерфейс синхронизации филиала с центром
type Service interface {
	// Sync выполняет полный цикл: push локальной очереди, затем pull
	Sync(ctx context.Context) (*SyncResult, error)

	// PendingCount возвращает количество изменений, ожидающих отправки
	PendingCount(ctx context.Context) (int, error)
}

// ServerAPI is the server surface the sync service depends on
type ServerAPI interface {
	Push(ctx context.Context, req api.PushRequest) (*api.PushResponse, error)
	Pull(ctx context.Context, since time.Time, tables []string, limit int) (*api.PullResponse, error)
}

// service handles synchronization between a site agent and the central server
type service struct {
	apiClient ServerAPI
	queue     storage.QueueStorage
	metadata  storage.MetadataStorage
	applier   *engine.Applier
	logger    *slog.Logger
	pullLimit int
}

// NewService creates a new sync service. The applier must be built over the
// agent's local record storage.
func NewService(
	apiClient ServerAPI,
	queue storage.QueueStorage,
	metadata storage.MetadataStorage,
	applier *engine.Applier,
	logger *slog.Logger,
) Service {
	return &service{
		apiClient: apiClient,
		queue:     queue,
		metadata:  metadata,
		applier:   applier,
		logger:    logger,
		pullLimit: 100,
	}
}

// SyncResult contains sync operation results
type SyncResult struct {
	Pushed        int // отправлено изменений
	PushConflicts int // отклонено сервером как конфликт
	PushFailed    int // не принято сервером
	Reapplied     int // повторно применено сервером после retry
	Pulled        int // получено чужих изменений
	Applied       int // применено локально
	PullConflicts int // проиграло локальной версии
	PullFailed    int // не применилось из-за ошибки
}

// Sync performs a full exchange with the server:
// 1. Pushes queued local changes and records per-item outcomes
// 2. Pulls foreign changes page by page and applies them locally
// 3. Advances the pull cursor after every applied page
func (s *service) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	if err := s.push(ctx, result); err != nil {
		return nil, err
	}

	if err := s.pull(ctx, result); err != nil {
		return nil, err
	}

	s.logger.Info("synchronization completed",
		"pushed", result.Pushed,
		"push_conflicts", result.PushConflicts,
		"push_failed", result.PushFailed,
		"reapplied", result.Reapplied,
		"pulled", result.Pulled,
		"applied", result.Applied,
		"pull_conflicts", result.PullConflicts,
		"pull_failed", result.PullFailed)

	return result, nil
}

func (s *service) push(ctx context.Context, result *SyncResult) error {
	pending, err := s.queue.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending changes: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	s.logger.Info("pushing local changes", "count", len(pending))

	req := api.PushRequest{Changes: make([]api.Change, 0, len(pending))}
	for _, change := range pending {
		req.Changes = append(req.Changes, api.Change{
			TableName:        change.TableName,
			RecordUUID:       change.RecordUUID,
			Operation:        string(change.Operation),
			Data:             change.Payload,
			CreatedAtOffline: change.CreatedAtOffline,
		})
	}

	resp, err := s.apiClient.Push(ctx, req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	// Сервер возвращает ровно по одному результату на отправленное
	// изменение, в порядке отправки
	if len(resp.Results) != len(pending) {
		s.logger.Warn("push result count mismatch",
			"sent", len(pending),
			"received", len(resp.Results))
	}
	for i, r := range resp.Results {
		if i >= len(pending) {
			break
		}
		change := pending[i]

		status, message := queueOutcome(r)
		if err := s.queue.UpdateStatus(ctx, change.ID, status, message); err != nil {
			s.logger.Warn("failed to record push outcome",
				"change_id", change.ID,
				"error", err)
			continue
		}

		switch status {
		case models.StatusSynced:
			result.Pushed++
		case models.StatusConflict:
			result.PushConflicts++
			s.logger.Warn("change rejected as conflict",
				"table", change.TableName,
				"uuid", change.RecordUUID,
				"message", r.Message)
		default:
			result.PushFailed++
		}
	}

	if len(resp.Reapplied) > 0 {
		s.reconcileReapplied(ctx, resp.Reapplied, result)
	}

	return nil
}

// reconcileReapplied updates local FAILED entries with the outcomes of their
// server-side copies re-applied after a retry. Matching is by table and uuid
// since those entries live in the server's change log, not in this batch.
func (s *service) reconcileReapplied(ctx context.Context, reapplied []api.ChangeResult, result *SyncResult) {
	failed, err := s.queue.ListByStatus(ctx, models.StatusFailed)
	if err != nil {
		s.logger.Warn("failed to list failed changes for reconciliation", "error", err)
		return
	}

	for _, r := range reapplied {
		for _, change := range failed {
			if change.Status != models.StatusFailed {
				continue
			}
			if change.TableName != r.TableName || change.RecordUUID != r.RecordUUID {
				continue
			}

			status, message := queueOutcome(r)
			if err := s.queue.UpdateStatus(ctx, change.ID, status, message); err != nil {
				s.logger.Warn("failed to record reapplied outcome",
					"change_id", change.ID,
					"error", err)
				break
			}
			change.Status = status
			result.Reapplied++
			break
		}
	}
}

// queueOutcome maps a server push result onto the local queue status machine
func queueOutcome(r api.ChangeResult) (models.ChangeStatus, string) {
	switch engine.ApplyStatus(r.Status) {
	case engine.ApplySuccess:
		return models.StatusSynced, ""
	case engine.ApplyConflict:
		return models.StatusConflict, r.Message
	default:
		return models.StatusFailed, r.Message
	}
}

func (s *service) pull(ctx context.Context, result *SyncResult) error {
	since, err := s.metadata.GetLastSync(ctx)
	if err != nil {
		s.logger.Warn("failed to get pull cursor, starting from zero", "error", err)
		since = time.Time{}
	}

	for {
		resp, err := s.apiClient.Pull(ctx, since, nil, s.pullLimit)
		if err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}

		result.Pulled += len(resp.Changes)

		for _, apiChange := range resp.Changes {
			change := &models.ChangeRecord{
				TableName:        apiChange.TableName,
				RecordUUID:       apiChange.RecordUUID,
				Operation:        models.Operation(apiChange.Operation),
				Payload:          apiChange.Data,
				OriginSiteID:     apiChange.OriginSiteID,
				CreatedAtOffline: apiChange.CreatedAtOffline,
			}

			applied := s.applier.Apply(ctx, change)
			switch applied.Status {
			case engine.ApplySuccess:
				result.Applied++
			case engine.ApplyConflict:
				// Локальная версия новее: наше изменение еще уедет на
				// сервер и выиграет там тем же сравнением.
				result.PullConflicts++
			default:
				result.PullFailed++
				s.logger.Warn("failed to apply pulled change",
					"table", change.TableName,
					"uuid", change.RecordUUID,
					"message", applied.Message)
			}
		}

		// Пока есть продолжение, курсор двигается по updated_at последней
		// полученной записи: у строгого сравнения > это не теряет и не
		// дублирует записи. Штамп сервера берется только после последней
		// страницы, иначе он перепрыгнет еще не отданный хвост.
		if resp.HasMore {
			if len(resp.Changes) == 0 {
				s.logger.Warn("server reported has_more with an empty page")
				return nil
			}
			since = resp.Changes[len(resp.Changes)-1].UpdatedAt
		} else {
			since = resp.SyncTimestamp
		}

		if err := s.metadata.SaveLastSync(ctx, since); err != nil {
			s.logger.Warn("failed to save pull cursor", "error", err)
		}

		if !resp.HasMore {
			return nil
		}
	}
}

// PendingCount возвращает количество изменений, ожидающих отправки
func (s *service) PendingCount(ctx context.Context) (int, error) {
	counts, err := s.queue.Counts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return counts[models.StatusPending], nil
}
