package main

// The executor: a static dispatch table from command name to a handler that
// runs the command against the cache facade and formats the reply.

type handlerFunc func(mc *Memcached, cmd *Command, body []byte) ([]byte, error)

var handlerTable = map[string]handlerFunc{
	"set":       handleSet,
	"cas":       handleCas,
	"add":       handleAdd,
	"replace":   handleReplace,
	"prepend":   handlePrepend,
	"append":    handleAppend,
	"get":       handleGet,
	"gets":      handleGets,
	"delete":    handleDelete,
	"incr":      handleIncr,
	"decr":      handleDecr,
	"stats":     handleStats,
	"flush_all": handleFlushAll,
	"version":   handleVersion,
	"verbosity": handleVerbosity,
	"quit":      handleQuit,
}

// executeCommand dispatches a parsed command. Under noreply the side effect
// still happens but the reply is dropped.
func executeCommand(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	handler, ok := handlerTable[cmd.Name]
	if !ok {
		return nil, errBadDispatch
	}
	reply, err := handler(mc, cmd, body)
	if err != nil {
		return nil, err
	}
	if cmd.Noreply {
		return nil, nil
	}
	return reply, nil
}

func storeReply(ret storeResult) []byte {
	switch ret {
	case resStored:
		return replyStored
	case resNotStored:
		return replyNotStored
	case resExists:
		return replyExists
	case resNotFound:
		return replyNotFound
	case resDeleted:
		return replyDeleted
	}
	return nil
}

func handleSet(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	mc.Set(cmd.Key, cmd.Flags, cmd.Exptime, body)
	return replyStored, nil
}

func handleCas(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	return storeReply(mc.Cas(cmd.Key, cmd.Flags, cmd.Exptime, cmd.CasUnique, body)), nil
}

func handleAdd(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	return storeReply(mc.Add(cmd.Key, cmd.Flags, cmd.Exptime, body)), nil
}

func handleReplace(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	return storeReply(mc.Replace(cmd.Key, cmd.Flags, cmd.Exptime, body)), nil
}

func handlePrepend(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	return storeReply(mc.Prepend(cmd.Key, cmd.Flags, cmd.Exptime, body)), nil
}

func handleAppend(mc *Memcached, cmd *Command, body []byte) ([]byte, error) {
	return storeReply(mc.Append(cmd.Key, cmd.Flags, cmd.Exptime, body)), nil
}

func handleGet(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	return appendValueLines(nil, mc.Get(cmd.Keys), false), nil
}

func handleGets(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	return appendValueLines(nil, mc.Gets(cmd.Keys), true), nil
}

func handleDelete(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	return storeReply(mc.Delete(cmd.Key)), nil
}

func arithReply(ret storeResult, value string) []byte {
	switch ret {
	case resNotNumber:
		return replyNotNumber
	case resNotFound:
		return replyNotFound
	}
	return append([]byte(value), crlf...)
}

func handleIncr(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	ret, value := mc.Increment(cmd.Key, cmd.Delta)
	return arithReply(ret, value), nil
}

func handleDecr(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	ret, value := mc.Decrement(cmd.Key, cmd.Delta)
	return arithReply(ret, value), nil
}

func handleStats(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	return appendStatLines(nil, mc.StatsDump(cmd.StatsSub)), nil
}

func handleFlushAll(mc *Memcached, cmd *Command, _ []byte) ([]byte, error) {
	mc.Flush(cmd.Delay)
	return replyOK, nil
}

func handleVersion(_ *Memcached, _ *Command, _ []byte) ([]byte, error) {
	return []byte("VERSION " + Version + "\r\n"), nil
}

func handleVerbosity(_ *Memcached, _ *Command, _ []byte) ([]byte, error) {
	return replyOK, nil
}

func handleQuit(_ *Memcached, _ *Command, _ []byte) ([]byte, error) {
	return nil, errQuit
}
