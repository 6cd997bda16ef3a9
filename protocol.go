package main

import (
	"bytes"
	"errors"

	"github.com/sirupsen/logrus"
)

var stateNames = [...]string{"R_SEARCH", "N_SEARCH", "BODY", "DONE"}

// Protocol is the per-connection framing state machine. It consumes inbound
// byte chunks in whatever fragments they arrive, executes each complete
// command, and accumulates the reply bytes. Partial progress is carried
// across Feed calls as (state, carry, parsed command).
type Protocol struct {
	state int
	carry []byte
	cmd   *Command

	stats *Stats
	mc    *Memcached
	log   *logrus.Entry
}

func newProtocol(stats *Stats, mc *Memcached, log *logrus.Entry) *Protocol {
	return &Protocol{
		state: stateRSearch,
		stats: stats,
		mc:    mc,
		log:   log,
	}
}

func (p *Protocol) transition(state int) {
	p.log.Debugf("state %s -> %s", stateNames[p.state], stateNames[state])
	p.state = state
}

// Feed consumes one inbound chunk, processing as many complete commands as
// fit. It returns the accumulated reply bytes (empty under noreply or when
// no command completed) and whether the client quit.
func (p *Protocol) Feed(chunk []byte) (reply []byte, quit bool) {
	p.stats.readBytes(len(chunk))

	buf := chunk
	var out []byte

feed:
	for {
		if p.state == stateDone {
			r, err := executeCommand(p.mc, p.cmd, p.carry)
			switch {
			case errors.Is(err, errQuit):
				p.log.Info("quit requested")
				quit = true
				break feed
			case err != nil:
				// dispatch table inconsistency, nothing for the wire
				p.log.WithError(err).Error("execute failed")
			default:
				p.log.Infof("response: %s", escapeCRLF(r))
				out = append(out, r...)
			}
			p.cmd = nil
			p.carry = nil
			p.transition(stateRSearch)
			continue
		}

		if len(buf) == 0 {
			break
		}

		switch p.state {
		case stateRSearch:
			i := bytes.IndexByte(buf, '\r')
			if i < 0 {
				p.carry = append(p.carry, buf...)
				buf = nil
				continue
			}
			line := string(p.carry) + string(buf[:i])
			buf = buf[i+1:]
			p.carry = nil

			cmd, err := parseCommandLine(line)
			if err != nil {
				out = p.fail(out, err)
				buf = nil
				continue
			}
			p.log.Infof("request: %s", escapeCRLF([]byte(line)))
			p.cmd = cmd
			p.transition(stateNSearch)

		case stateNSearch:
			if buf[0] != '\n' {
				out = p.fail(out, errMalformedRequest)
				buf = nil
				continue
			}
			buf = buf[1:]
			if p.cmd.Bytes > 0 {
				p.transition(stateBody)
			} else {
				p.transition(stateDone)
			}

		case stateBody:
			need := p.cmd.Bytes + 2 - len(p.carry)
			take := need
			if take > len(buf) {
				take = len(buf)
			}
			p.carry = append(p.carry, buf[:take]...)
			buf = buf[take:]

			if len(p.carry) == p.cmd.Bytes+2 {
				if !bytes.HasSuffix(p.carry, crlf) {
					out = p.fail(out, errMalformedRequest)
					buf = nil
					continue
				}
				p.carry = p.carry[:p.cmd.Bytes]
				p.transition(stateDone)
			}
		}
	}

	p.stats.writeBytes(len(out))
	return out, quit
}

// fail converts a protocol error into its reply line and resets the machine.
// The remainder of the offending chunk is discarded by the caller; the
// connection stays open.
func (p *Protocol) fail(out []byte, err error) []byte {
	var perr *protocolError
	if errors.As(err, &perr) {
		p.log.Warnf("protocol error: %s", escapeCRLF([]byte(perr.Reply)))
		out = append(out, perr.Reply...)
	} else {
		p.log.WithError(err).Warn("protocol failure")
	}
	p.cmd = nil
	p.carry = nil
	p.transition(stateRSearch)
	return out
}
