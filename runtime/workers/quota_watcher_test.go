package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"style-relay/domain"
	"style-relay/mocks"
)

func TestQuotaWatcher_PushesOnlyOnChange(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transformerMock := mocks.NewMockITransformer(ctrl)
	coordinatorMock := mocks.NewMockICoordinator(ctrl)

	// Given a snapshot that flips to exceeded and then stays there
	transformerMock.EXPECT().
		QuotaSnapshot().
		Return(domain.RateLimitState{IsExceeded: true, LastError: "Quota exceeded"}).
		AnyTimes()

	// Then only the first changed snapshot is pushed, later equal ones are not
	pushed := make(chan struct{})
	coordinatorMock.EXPECT().
		PushQuota(gomock.Any()).
		Do(func(context.Context) { close(pushed) }).
		Times(1)

	watcher := NewQuotaWatcher(slog.Default(), coordinatorMock, transformerMock, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(watcher.Run(ctx))
		close(done)
	}()

	select {
	case <-pushed:
	case <-time.After(1 * time.Second):
		req.Fail("Watcher should have pushed the changed quota state")
	}

	// Letting several more ticks pass must not produce further pushes
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done
}

func TestQuotaWatcher_SilentWhileNothingChanges(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transformerMock := mocks.NewMockITransformer(ctrl)
	coordinatorMock := mocks.NewMockICoordinator(ctrl)

	// Given a snapshot identical to the initial zero state
	transformerMock.EXPECT().
		QuotaSnapshot().
		Return(domain.RateLimitState{}).
		AnyTimes()

	// Then no push ever goes out
	coordinatorMock.EXPECT().PushQuota(gomock.Any()).Times(0)

	watcher := NewQuotaWatcher(slog.Default(), coordinatorMock, transformerMock, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req.NoError(watcher.Run(ctx))
}
