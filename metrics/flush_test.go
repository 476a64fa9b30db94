package metrics

import (
	"bufio"
	"net"
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIfWriteOnceLogsEveryMetric(t *testing.T) {
	registry := metrics.NewRegistry()
	metrics.GetOrRegisterCounter("units.executed", registry).Inc(3)
	metrics.GetOrRegisterTimer("units.duration", registry).Update(time.Second)
	logger, hook := test.NewNullLogger()

	WriteOnce(registry, logger)

	require.Len(t, hook.AllEntries(), 2)
	fields := map[string]interface{}{}
	for _, entry := range hook.AllEntries() {
		fields[entry.Data["Metric"].(string)] = entry.Data["Count"]
	}
	assert.Equal(t, int64(3), fields["units.executed"])
	assert.Equal(t, int64(1), fields["units.duration"])
}

func TestIfFlushShipsMetricsToGraphiteImmediately(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	defer func() { flush = logOnce }()

	received := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
	}()

	metrics.GetOrRegisterCounter("units.flushed", metrics.DefaultRegistry).Inc(1)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, SetupGraphite(GraphiteConfig{Host: "127.0.0.1", Port: addr.Port}, "flush"))

	require.NoError(t, Flush())

	select {
	case line := <-received:
		assert.Contains(t, line, "flush.")
	case <-time.After(5 * time.Second):
		t.Fatal("nothing received by graphite")
	}
}
