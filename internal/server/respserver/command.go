package respserver

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/mcnannay/peptrackr/internal/core/domain"
	"github.com/mcnannay/peptrackr/internal/core/service"
)

// Command results reported to the CommandObserver.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultRateLimited = "rate_limited"
	ResultUnknown     = "unknown"
)

// CommandObserver receives the outcome of each command.
type CommandObserver interface {
	ObserveCommand(command, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveCommand(string, string) {}

// errQuit asks serveConn to close the connection after the reply is flushed.
var errQuit = errors.New("resp: quit")

// commandHandler executes commands against the store.
type commandHandler struct {
	store    *service.StoreService
	limiter  *service.RateLimiterRegistry
	observer CommandObserver
	logger   *slog.Logger
}

type commandFunc func(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error

type commandSpec struct {
	fn commandFunc
	// arity is the exact argument count including the name when positive,
	// or the minimum count when negative.
	arity int
}

var commands = map[string]commandSpec{
	"PING":    {cmdPing, -1},
	"QUIT":    {cmdQuit, 1},
	"COMMAND": {cmdCommand, -1},
	"GET":     {cmdGet, 2},
	"SET":     {cmdSet, 3},
	"DEL":     {cmdDel, -2},
	"EXISTS":  {cmdExists, -2},
	"MGET":    {cmdMGet, -2},
	"KEYS":    {cmdKeys, 2},
	"DBSIZE":  {cmdDBSize, 1},
}

// handle executes one command for client and writes its reply.
func (h *commandHandler) handle(ctx context.Context, client string, w *replyWriter, args [][]byte) error {
	name := commandName(args[0])

	spec, ok := commands[name]
	if !ok {
		h.observer.ObserveCommand("unknown", ResultUnknown)
		w.Error("ERR unknown command '" + string(args[0]) + "'")
		return nil
	}

	if h.limiter != nil && name != "QUIT" && !h.limiter.Allow(client) {
		h.observer.ObserveCommand(name, ResultRateLimited)
		writeDomainError(w, domain.ErrRateLimited)
		return nil
	}

	if !arityOK(spec.arity, len(args)) {
		h.observer.ObserveCommand(name, ResultError)
		w.Error("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
		return nil
	}

	err := spec.fn(ctx, h, w, args)
	switch {
	case err == nil, errors.Is(err, errQuit):
		h.observer.ObserveCommand(name, ResultOK)
		return err
	case domain.IsDomainError(err, ""):
		h.observer.ObserveCommand(name, ResultError)
		writeDomainError(w, err)
		return nil
	default:
		h.observer.ObserveCommand(name, ResultError)
		h.logger.Error("resp command failed", "command", name, "client", client, "error", err)
		writeDomainError(w, domain.ErrInternalServer)
		return nil
	}
}

func arityOK(arity, n int) bool {
	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}

// writeDomainError writes "-ERR <code> <message>".
func writeDomainError(w *replyWriter, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		w.Error("ERR " + err.Error())
		return
	}
	msg := "ERR " + de.Code + " " + de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	w.Error(msg)
}

func keysOf(args [][]byte) []string {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return keys
}

// ============================================================================
// Connection commands
// ============================================================================

func cmdPing(_ context.Context, _ *commandHandler, w *replyWriter, args [][]byte) error {
	switch len(args) {
	case 1:
		w.SimpleString("PONG")
	case 2:
		w.Bulk(args[1])
	default:
		w.Error("ERR wrong number of arguments for 'ping' command")
	}
	return nil
}

func cmdQuit(_ context.Context, _ *commandHandler, w *replyWriter, _ [][]byte) error {
	w.SimpleString("OK")
	return errQuit
}

// cmdCommand replies with an empty command table; redis-cli calls it on connect.
func cmdCommand(_ context.Context, _ *commandHandler, w *replyWriter, _ [][]byte) error {
	w.Array(0)
	return nil
}

// ============================================================================
// Store commands
// ============================================================================

func cmdGet(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	value, err := h.store.Get(ctx, string(args[1]))
	if errors.Is(err, domain.ErrEntryNotFound) {
		w.Nil()
		return nil
	}
	if err != nil {
		return err
	}
	w.Bulk(value)
	return nil
}

func cmdSet(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	value, err := domain.NewValue(args[2])
	if err != nil {
		return err
	}
	if _, err := h.store.Put(ctx, string(args[1]), value); err != nil {
		return err
	}
	w.SimpleString("OK")
	return nil
}

func cmdDel(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	var deleted int64
	for _, key := range keysOf(args[1:]) {
		err := h.store.Delete(ctx, key)
		if errors.Is(err, domain.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		deleted++
	}
	w.Integer(deleted)
	return nil
}

// cmdExists counts a key once per mention, as Redis does.
func cmdExists(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	keys := keysOf(args[1:])
	found, err := h.store.GetMany(ctx, keys)
	if err != nil {
		return err
	}
	var n int64
	for _, key := range keys {
		if _, ok := found[key]; ok {
			n++
		}
	}
	w.Integer(n)
	return nil
}

func cmdMGet(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	keys := keysOf(args[1:])
	found, err := h.store.GetMany(ctx, keys)
	if err != nil {
		return err
	}
	w.Array(len(keys))
	for _, key := range keys {
		if v, ok := found[key]; ok {
			w.Bulk(v)
		} else {
			w.Nil()
		}
	}
	return nil
}

func cmdKeys(ctx context.Context, h *commandHandler, w *replyWriter, args [][]byte) error {
	pattern := string(args[1])
	all, err := h.store.GetMany(ctx, nil)
	if err != nil {
		return err
	}

	matched := make([]string, 0, len(all))
	for key := range all {
		if matchGlob(pattern, key) {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)

	w.Array(len(matched))
	for _, key := range matched {
		w.Bulk([]byte(key))
	}
	return nil
}

func cmdDBSize(ctx context.Context, h *commandHandler, w *replyWriter, _ [][]byte) error {
	n, err := h.store.Count(ctx)
	if err != nil {
		return err
	}
	w.Integer(int64(n))
	return nil
}

// matchGlob reports whether s matches pattern, where '*' matches any run of
// characters (including '/') and '?' matches exactly one. There is no
// escaping and no character classes.
func matchGlob(pattern, s string) bool {
	p := []rune(pattern)
	t := []rune(s)

	var pi, ti int
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti]):
			pi++
			ti++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
