package notify_test

// Тесты асинхронной очереди уведомлений.
//
// Моки:
//   mockgen -source=./internal/notify/notify.go -destination=./mocks/notify.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-conference-central/internal/notify"
	"github.com/pribylovaa/go-conference-central/mocks"
)

func TestAsync_DeliversInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)

	first := notify.Message{To: "a@example.com", Subject: "1"}
	second := notify.Message{To: "b@example.com", Subject: "2"}

	gomock.InOrder(
		next.EXPECT().Notify(gomock.Any(), first).Return(nil),
		next.EXPECT().Notify(gomock.Any(), second).Return(errors.New("smtp down")),
	)

	a := notify.NewAsync(next, 4)
	require.NoError(t, a.Notify(context.Background(), first))
	require.NoError(t, a.Notify(context.Background(), second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
}

// Отмена контекста запроса не должна отменять уже поставленную отправку.
func TestAsync_DetachesRequestContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)

	next.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ notify.Message) error {
			return ctx.Err()
		},
	)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	a := notify.NewAsync(next, 1)
	require.NoError(t, a.Notify(reqCtx, notify.Message{To: "a@example.com"}))
	cancelReq()

	require.NoError(t, a.Close(context.Background()))
}

func TestAsync_QueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})

	next.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, notify.Message) error {
			close(started)
			<-release
			return nil
		},
	)
	next.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	a := notify.NewAsync(next, 1)
	require.NoError(t, a.Notify(context.Background(), notify.Message{To: "1@example.com"}))
	<-started

	require.NoError(t, a.Notify(context.Background(), notify.Message{To: "2@example.com"}))
	err := a.Notify(context.Background(), notify.Message{To: "3@example.com"})
	require.ErrorIs(t, err, notify.ErrQueueFull)

	close(release)
	require.NoError(t, a.Close(context.Background()))
}

func TestAsync_NotifyAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockNotifier(ctrl)

	a := notify.NewAsync(next, 1)
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	err := a.Notify(context.Background(), notify.Message{To: "a@example.com"})
	require.ErrorIs(t, err, notify.ErrClosed)
}

func TestLog_NeverFails(t *testing.T) {
	require.NoError(t, notify.Log{}.Notify(context.Background(), notify.Message{To: "a@example.com", Body: "hi"}))
}
