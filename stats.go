package main

import (
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// statPair is one name/value line of a stats reply.
type statPair struct {
	name  string
	value string
}

// Stats is the process-wide statistics aggregate. It layers cache, command,
// protocol and connection counters and is shared by the cache facade and
// every connection, so all access goes through its mutex.
type Stats struct {
	mu sync.Mutex

	// cache layer
	limitMaxbytes int64
	limitMaxitems int64
	currItems     int64
	totalItems    int64
	bytes         int64
	evictions     int64
	reclaimed     int64

	// command counters
	cmdGet       int64
	cmdSet       int64
	getMisses    int64
	getHits      int64
	deleteMisses int64
	deleteHits   int64
	incrMisses   int64
	incrHits     int64
	decrMisses   int64
	decrHits     int64
	casMisses    int64
	casHits      int64
	casBadvals   int64
	authCmds     int64
	authErrors   int64

	// protocol layer
	bytesRead    int64
	bytesWritten int64

	// connection layer
	startTime            int64
	currConnections      int64
	totalConnections     int64
	connectionStructures int64
}

func NewStats() *Stats {
	return &Stats{startTime: intTime()}
}

func (s *Stats) setMaximums(maxItems, maxBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitMaxitems = maxItems
	s.limitMaxbytes = maxBytes
}

func (s *Stats) addItem(addBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currItems++
	s.totalItems++
	s.bytes += addBytes
}

func (s *Stats) delItem(delBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currItems--
	s.bytes -= delBytes
}

func (s *Stats) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions++
}

func (s *Stats) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaimed++
}

func (s *Stats) set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmdSet++
}

func (s *Stats) get(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmdGet++
	if hit {
		s.getHits++
	} else {
		s.getMisses++
	}
}

func (s *Stats) deleteOp(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.deleteHits++
	} else {
		s.deleteMisses++
	}
}

func (s *Stats) incr(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.incrHits++
	} else {
		s.incrMisses++
	}
}

func (s *Stats) decr(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.decrHits++
	} else {
		s.decrMisses++
	}
}

func (s *Stats) casMiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casMisses++
}

func (s *Stats) casHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casHits++
}

func (s *Stats) casBadval() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casBadvals++
}

func (s *Stats) readBytes(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesRead += int64(count)
}

func (s *Stats) writeBytes(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesWritten += int64(count)
}

func (s *Stats) connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currConnections++
	s.totalConnections++
	s.connectionStructures++
}

func (s *Stats) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currConnections--
	s.connectionStructures--
}

func rusageSeconds() (user, system float64) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, 0
	}
	user = float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
	system = float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
	return user, system
}

// Dump renders every layer's counters as ordered name/value pairs. The
// subcommand is accepted but the full aggregate is returned regardless.
func (s *Stats) Dump(sub string) []statPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = sub
	now := intTime()
	rusageUser, rusageSystem := rusageSeconds()

	n := strconv.FormatInt
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	return []statPair{
		{"limit_maxbytes", n(s.limitMaxbytes, 10)},
		{"limit_maxitems", n(s.limitMaxitems, 10)},
		{"curr_items", n(s.currItems, 10)},
		{"total_items", n(s.totalItems, 10)},
		{"bytes", n(s.bytes, 10)},
		{"evictions", n(s.evictions, 10)},
		{"reclaimed", n(s.reclaimed, 10)},
		{"cmd_get", n(s.cmdGet, 10)},
		{"cmd_set", n(s.cmdSet, 10)},
		{"get_misses", n(s.getMisses, 10)},
		{"get_hits", n(s.getHits, 10)},
		{"delete_misses", n(s.deleteMisses, 10)},
		{"delete_hits", n(s.deleteHits, 10)},
		{"incr_misses", n(s.incrMisses, 10)},
		{"incr_hits", n(s.incrHits, 10)},
		{"decr_misses", n(s.decrMisses, 10)},
		{"decr_hits", n(s.decrHits, 10)},
		{"cas_misses", n(s.casMisses, 10)},
		{"cas_hits", n(s.casHits, 10)},
		{"cas_badvals", n(s.casBadvals, 10)},
		{"auth_cmds", n(s.authCmds, 10)},
		{"auth_errors", n(s.authErrors, 10)},
		{"bytes_read", n(s.bytesRead, 10)},
		{"bytes_written", n(s.bytesWritten, 10)},
		{"version", Version},
		{"pid", strconv.Itoa(os.Getpid())},
		{"uptime", n(now-s.startTime, 10)},
		{"time", n(now, 10)},
		{"pointer_size", "64"},
		{"rusage_user", f(rusageUser)},
		{"rusage_system", f(rusageSystem)},
		{"curr_connections", n(s.currConnections, 10)},
		{"total_connections", n(s.totalConnections, 10)},
		{"connection_structures", n(s.connectionStructures, 10)},
		{"threads", "1"},
		{"conn_yields", "0"},
	}
}
