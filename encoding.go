package main

import "strconv"

// Reply-assembly helpers for the multi-line responses.

// appendValueLines renders retrieved items as
// "VALUE <key> <flags> <len> [<casunique>]\r\n<value>\r\n" lines followed by
// the END terminator.
func appendValueLines(buf []byte, items []*CacheItem, withCAS bool) []byte {
	for _, item := range items {
		buf = append(buf, "VALUE "...)
		buf = append(buf, item.key...)
		buf = append(buf, ' ')
		buf = append(buf, item.flags...)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(len(item.value)), 10)
		if withCAS {
			buf = append(buf, ' ')
			buf = strconv.AppendUint(buf, item.casunique, 10)
		}
		buf = append(buf, crlf...)
		buf = append(buf, item.value...)
		buf = append(buf, crlf...)
	}
	return append(buf, replyEnd...)
}

// appendStatLines renders stats pairs as "STAT <name> <value>\r\n" lines
// followed by the END terminator.
func appendStatLines(buf []byte, pairs []statPair) []byte {
	for _, pair := range pairs {
		buf = append(buf, "STAT "...)
		buf = append(buf, pair.name...)
		buf = append(buf, ' ')
		buf = append(buf, pair.value...)
		buf = append(buf, crlf...)
	}
	return append(buf, replyEnd...)
}
