package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/repo"
)

// ChatCleanupJob trims chat turns older than the retention window.
type ChatCleanupJob struct {
	chats         *repo.ChatRepo
	retentionDays int
}

func NewChatCleanupJob(chats *repo.ChatRepo, retentionDays int) *ChatCleanupJob {
	return &ChatCleanupJob{chats: chats, retentionDays: retentionDays}
}

func (j *ChatCleanupJob) Name() string {
	return "chat_cleanup"
}

func (j *ChatCleanupJob) Run(ctx context.Context) error {
	if j.chats == nil || j.retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)
	removed, err := j.chats.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired chat turns removed", zap.Int64("count", removed))
	}
	return nil
}
