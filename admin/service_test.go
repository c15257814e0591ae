package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/manager"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	params := datapage.Params{ExpectedMessageSize: 64, Slots: 8, Groups: 4}
	mgr, err := manager.New(dir, params)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return NewService(mgr, zaptest.NewLogger(t).Sugar())
}

func TestGetPageStatsReportsManagerState(t *testing.T) {
	svc := newTestService(t)

	st, err := svc.GetPageStats(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := st.AsMap()
	require.EqualValues(t, 0, fields["page_count"])
	require.EqualValues(t, 0, fields["oldest_sequence"])
}

func TestSetMaxPagesUpdatesRetention(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SetMaxPages(context.Background(), wrapperspb.UInt64(3))
	require.NoError(t, err)

	st, err := svc.GetPageStats(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	require.EqualValues(t, 3, st.AsMap()["max_pages"])
}
