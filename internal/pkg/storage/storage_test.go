package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "documents/uid-1/1700000000123_plan.pdf", ObjectPath("", "uid-1", "plan.pdf", now))
	assert.Equal(t, "docs/uid-1/1700000000123_plan.pdf", ObjectPath("docs/", "uid-1", "plan.pdf", now))
	// 客户端带路径的文件名只保留文件名部分
	assert.Equal(t, "documents/u/1700000000123_plan.pdf", ObjectPath("documents", "u", "C:\\tmp\\plan.pdf", now))
	assert.Equal(t, "documents/u/1700000000123_plan.pdf", ObjectPath("documents", "u", "../../plan.pdf", now))
}

func TestProgressTracker(t *testing.T) {
	var events []ProgressEvent
	tr := newProgressTracker(10, func(ev ProgressEvent) { events = append(events, ev) })

	tr.add(4)
	tr.add(6)
	tr.set(10, 0)

	require.Len(t, events, 3)
	assert.Equal(t, ProgressEvent{BytesTransferred: 4, TotalBytes: 10}, events[0])
	assert.Equal(t, int64(10), events[1].BytesTransferred)
	assert.Equal(t, float64(100), events[2].Percent())
	assert.Equal(t, float64(0), ProgressEvent{BytesTransferred: 5}.Percent())
}

func TestMinioProgressCountsRequestedBytes(t *testing.T) {
	var last ProgressEvent
	p := &minioProgress{tracker: newProgressTracker(8, func(ev ProgressEvent) { last = ev })}

	n, err := p.Read(make([]byte, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), last.BytesTransferred)
}

func TestCancelableReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &cancelableReader{ctx: ctx, reader: strings.NewReader("hello world")}

	buf := make([]byte, 5)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}
