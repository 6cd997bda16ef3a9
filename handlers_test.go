package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, mc *Memcached, line string, body []byte) ([]byte, error) {
	t.Helper()
	cmd, err := parseCommandLine(line)
	require.NoError(t, err)
	return executeCommand(mc, cmd, body)
}

func TestHandleSet(t *testing.T) {
	mc, _ := newTestFacade()

	reply, err := execute(t, mc, "set k 0 0 5", []byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, "STORED\r\n", string(reply))
}

func TestHandleGet(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set test_key 0 0 5", []byte("12345"))

	reply, err := execute(t, mc, "get test_key", nil)
	require.NoError(t, err)
	assert.Equal(t, "VALUE test_key 0 5\r\n12345\r\nEND\r\n", string(reply))

	reply, err = execute(t, mc, "get missing", nil)
	require.NoError(t, err)
	assert.Equal(t, "END\r\n", string(reply))
}

func TestHandleGetMultipleKeys(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set a 1 0 2", []byte("aa"))
	execute(t, mc, "set b 2 0 2", []byte("bb"))

	reply, err := execute(t, mc, "get a missing b", nil)
	require.NoError(t, err)
	assert.Equal(t, "VALUE a 1 2\r\naa\r\nVALUE b 2 2\r\nbb\r\nEND\r\n", string(reply))
}

func TestHandleGetsIncludesCas(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set k 0 0 5", []byte("12345"))

	item := getOne(t, mc, "k")
	reply, err := execute(t, mc, "gets k", nil)
	require.NoError(t, err)

	lines := strings.Split(string(reply), "\r\n")
	require.GreaterOrEqual(t, len(lines), 3)
	fields := strings.Fields(lines[0])
	require.Len(t, fields, 5)
	assert.Equal(t, "VALUE", fields[0])
	assert.Equal(t, "k", fields[1])

	cas, err := strconv.ParseUint(fields[4], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, item.casunique, cas)
}

func TestHandleAddReplace(t *testing.T) {
	mc, _ := newTestFacade()

	reply, _ := execute(t, mc, "replace k 0 0 1", []byte("x"))
	assert.Equal(t, "NOT_STORED\r\n", string(reply))

	reply, _ = execute(t, mc, "add k 0 0 1", []byte("x"))
	assert.Equal(t, "STORED\r\n", string(reply))

	reply, _ = execute(t, mc, "add k 0 0 1", []byte("y"))
	assert.Equal(t, "NOT_STORED\r\n", string(reply))

	reply, _ = execute(t, mc, "replace k 0 0 1", []byte("z"))
	assert.Equal(t, "STORED\r\n", string(reply))
}

func TestHandleCasReplies(t *testing.T) {
	mc, _ := newTestFacade()

	reply, _ := execute(t, mc, "cas k 0 0 1 999", []byte("a"))
	assert.Equal(t, "NOT_FOUND\r\n", string(reply))

	item := getOne(t, mc, "k")
	cas := strconv.FormatUint(item.casunique, 10)
	reply, _ = execute(t, mc, "cas k 0 0 1 "+cas, []byte("b"))
	assert.Equal(t, "STORED\r\n", string(reply))

	reply, _ = execute(t, mc, "cas k 0 0 1 "+cas, []byte("c"))
	assert.Equal(t, "EXISTS\r\n", string(reply))
}

func TestHandleDelete(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set k 0 0 1", []byte("x"))

	reply, _ := execute(t, mc, "delete k", nil)
	assert.Equal(t, "DELETED\r\n", string(reply))

	reply, _ = execute(t, mc, "delete k", nil)
	assert.Equal(t, "NOT_FOUND\r\n", string(reply))
}

func TestHandleIncrDecr(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set k 0 0 2", []byte("10"))

	reply, _ := execute(t, mc, "incr k 5", nil)
	assert.Equal(t, "15\r\n", string(reply))

	reply, _ = execute(t, mc, "decr k 2", nil)
	assert.Equal(t, "13\r\n", string(reply))

	reply, _ = execute(t, mc, "incr missing 1", nil)
	assert.Equal(t, "NOT_FOUND\r\n", string(reply))

	execute(t, mc, "set text 0 0 5", []byte("aaaaa"))
	reply, _ = execute(t, mc, "incr text 1", nil)
	assert.Equal(t, "CLIENT_ERROR cannot increment or decrement non-numeric value\r\n", string(reply))
}

func TestHandleStats(t *testing.T) {
	mc, _ := newTestFacade()

	reply, err := execute(t, mc, "stats", nil)
	require.NoError(t, err)

	s := string(reply)
	assert.True(t, strings.HasSuffix(s, "END\r\n"))
	assert.Contains(t, s, "STAT limit_maxbytes ")
	assert.Contains(t, s, "STAT curr_items 0\r\n")
	assert.Contains(t, s, "STAT cas_hits 0\r\n")
	assert.Contains(t, s, "STAT version "+Version+"\r\n")
	assert.Contains(t, s, "STAT threads 1\r\n")

	for _, line := range strings.Split(strings.TrimSuffix(s, "END\r\n"), "\r\n") {
		if line == "" {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "STAT "), "line %q", line)
	}
}

func TestHandleFlushAll(t *testing.T) {
	mc, _ := newTestFacade()
	execute(t, mc, "set k 0 0 1", []byte("x"))

	reply, _ := execute(t, mc, "flush_all", nil)
	assert.Equal(t, "OK\r\n", string(reply))

	reply, _ = execute(t, mc, "get k", nil)
	assert.Equal(t, "END\r\n", string(reply))
}

func TestHandleVersionAndVerbosity(t *testing.T) {
	mc, _ := newTestFacade()

	reply, err := execute(t, mc, "version", nil)
	require.NoError(t, err)
	assert.Equal(t, "VERSION 0.1\r\n", string(reply))

	reply, err = execute(t, mc, "verbosity", nil)
	require.NoError(t, err)
	assert.Equal(t, "OK\r\n", string(reply))
}

func TestHandleQuit(t *testing.T) {
	mc, _ := newTestFacade()

	reply, err := execute(t, mc, "quit", nil)
	assert.ErrorIs(t, err, errQuit)
	assert.Nil(t, reply)
}

func TestNoreplySuppressesReply(t *testing.T) {
	mc, _ := newTestFacade()

	reply, err := execute(t, mc, "set k 0 0 1 noreply", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, reply)

	// the side effect still happened
	reply, _ = execute(t, mc, "get k", nil)
	assert.Equal(t, "VALUE k 0 1\r\nx\r\nEND\r\n", string(reply))

	reply, err = execute(t, mc, "delete k noreply", nil)
	require.NoError(t, err)
	assert.Empty(t, reply)

	reply, _ = execute(t, mc, "get k", nil)
	assert.Equal(t, "END\r\n", string(reply))
}

func TestExecuteUnknownDispatch(t *testing.T) {
	mc, _ := newTestFacade()

	_, err := executeCommand(mc, &Command{Name: "bogus"}, nil)
	assert.ErrorIs(t, err, errBadDispatch)
}
