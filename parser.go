package main

import (
	"strconv"
	"strings"
)

const maxKeyLength = 250

var statsSubcommands = map[string]bool{
	"settings": true,
	"items":    true,
	"sizes":    true,
	"slabs":    true,
}

type parseFunc func(fields []string) (*Command, error)

var parseTable = map[string]parseFunc{
	"set":       parseStore,
	"add":       parseStore,
	"replace":   parseStore,
	"prepend":   parseStore,
	"append":    parseStore,
	"cas":       parseCas,
	"get":       parseRetrieve,
	"gets":      parseRetrieve,
	"delete":    parseDelete,
	"incr":      parseArith,
	"decr":      parseArith,
	"stats":     parseStats,
	"flush_all": parseFlushAll,
	"version":   parseSimple,
	"verbosity": parseSimple,
	"quit":      parseSimple,
}

// parseCommandLine splits one command line (without its CRLF) into a
// validated Command. Grammar violations come back as *protocolError whose
// Reply is sent verbatim.
func parseCommandLine(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errUnknownCommand
	}
	parse, ok := parseTable[fields[0]]
	if !ok {
		return nil, errUnknownCommand
	}
	return parse(fields)
}

func checkLength(fields []string, length int) error {
	if len(fields) < length {
		return errNotEnoughArguments
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validKey enforces the key constraints: at most 250 bytes, no control
// characters. Whitespace cannot survive field splitting.
func validKey(key string) bool {
	if key == "" || len(key) > maxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 33 || key[i] == 127 {
			return false
		}
	}
	return true
}

// parseStore handles set, add, replace, prepend and append:
// <command> <key> <flags> <exptime> <bytes> [noreply]
func parseStore(fields []string) (*Command, error) {
	if err := checkLength(fields, 5); err != nil {
		return nil, err
	}

	flags := fields[2]
	if len(flags) > 1 {
		return nil, errBadFlags
	}
	if !isDigits(flags) || !isDigits(fields[3]) || !isDigits(fields[4]) {
		return nil, errBadArgument
	}
	if !validKey(fields[1]) {
		return nil, errBadArgument
	}

	exptime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, errBadArgument
	}
	size, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, errBadArgument
	}

	return &Command{
		Name:    fields[0],
		Key:     fields[1],
		Flags:   flags,
		Exptime: exptime,
		Bytes:   size,
		Noreply: len(fields) == 6 && fields[5] == "noreply",
	}, nil
}

// parseCas: cas <key> <flags> <exptime> <bytes> <casunique> [noreply]
func parseCas(fields []string) (*Command, error) {
	if err := checkLength(fields, 6); err != nil {
		return nil, err
	}

	flags := fields[2]
	if len(flags) > 1 {
		return nil, errBadFlags
	}
	if !isDigits(flags) || !isDigits(fields[3]) || !isDigits(fields[4]) || !isDigits(fields[5]) {
		return nil, errBadArgument
	}
	if !validKey(fields[1]) {
		return nil, errBadArgument
	}

	exptime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, errBadArgument
	}
	size, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, errBadArgument
	}
	casunique, err := strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		return nil, errBadArgument
	}

	return &Command{
		Name:      fields[0],
		Key:       fields[1],
		Flags:     flags,
		Exptime:   exptime,
		Bytes:     size,
		CasUnique: casunique,
		Noreply:   len(fields) == 7 && fields[6] == "noreply",
	}, nil
}

// parseRetrieve: get/gets <key>+
func parseRetrieve(fields []string) (*Command, error) {
	if err := checkLength(fields, 2); err != nil {
		return nil, err
	}
	return &Command{
		Name: fields[0],
		Keys: fields[1:],
	}, nil
}

// parseDelete: delete <key> [noreply]
func parseDelete(fields []string) (*Command, error) {
	if err := checkLength(fields, 2); err != nil {
		return nil, err
	}
	if !validKey(fields[1]) {
		return nil, errBadArgument
	}
	return &Command{
		Name:    fields[0],
		Key:     fields[1],
		Noreply: len(fields) == 3 && fields[2] == "noreply",
	}, nil
}

// parseArith: incr/decr <key> <delta> [noreply]
func parseArith(fields []string) (*Command, error) {
	if err := checkLength(fields, 3); err != nil {
		return nil, err
	}
	if !isDigits(fields[2]) {
		return nil, errBadArgument
	}
	if !validKey(fields[1]) {
		return nil, errBadArgument
	}
	delta, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return nil, errBadArgument
	}
	return &Command{
		Name:    fields[0],
		Key:     fields[1],
		Delta:   delta,
		Noreply: len(fields) == 4 && fields[3] == "noreply",
	}, nil
}

// parseStats: stats [subcommand]
func parseStats(fields []string) (*Command, error) {
	cmd := &Command{Name: fields[0]}
	if len(fields) > 1 {
		if !statsSubcommands[fields[1]] {
			return nil, errInvalidStatistic
		}
		cmd.StatsSub = fields[1]
	}
	return cmd, nil
}

// parseFlushAll: flush_all [delay] [noreply]
func parseFlushAll(fields []string) (*Command, error) {
	cmd := &Command{Name: fields[0]}
	if len(fields) == 1 {
		return cmd, nil
	}

	if fields[1] == "noreply" {
		cmd.Noreply = true
		return cmd, nil
	}

	if !isDigits(fields[1]) {
		return nil, errBadArgument
	}
	delay, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, errBadArgument
	}
	cmd.Delay = delay
	cmd.Noreply = len(fields) == 3 && fields[2] == "noreply"
	return cmd, nil
}

// parseSimple: version, verbosity and quit take no arguments.
func parseSimple(fields []string) (*Command, error) {
	return &Command{Name: fields[0]}, nil
}
