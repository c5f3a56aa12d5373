package console

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"signage-studio/internal/model"
	"signage-studio/internal/panel"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

type timelineDeleter interface {
	DeleteTimeline(ctx context.Context, timelineID int64) error
}

type command struct {
	usage string
	help  string
	run   func(s *Studio, ctx context.Context, args []string) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":            {"help", "list commands", (*Studio).cmdHelp},
		"quit":            {"quit", "leave the console", func(*Studio, context.Context, []string) (string, error) { return "", ErrQuit }},
		"timelines":       {"timelines", "show the sequence in visual order", (*Studio).cmdTimelines},
		"thumbnail":       {"thumbnail <screen-props-json>", "add a timeline thumbnail", (*Studio).cmdThumbnail},
		"attach":          {"attach", "attach drag and drop", (*Studio).cmdAttach},
		"detach":          {"detach", "detach drag and drop", (*Studio).cmdDetach},
		"move":            {"move <timeline> <index>", "drag a timeline to a position", (*Studio).cmdMove},
		"drop":            {"drop", "end the drag and resequence", (*Studio).cmdDrop},
		"resequence":      {"resequence", "write every timeline's position", (*Studio).cmdResequence},
		"select-timeline": {"select-timeline <timeline>", "select a timeline", (*Studio).cmdSelectTimeline},
		"remove-timeline": {"remove-timeline <timeline>", "remove a timeline from the sequence", (*Studio).cmdRemoveTimeline},
		"delete-timeline": {"delete-timeline <timeline>", "delete a timeline on the server", (*Studio).cmdDeleteTimeline},
		"block":           {"block <id> <RSS|QR|Video|Image> [name]", "place a block on the channel", (*Studio).cmdBlock},
		"blocks":          {"blocks", "list placed blocks", (*Studio).cmdBlocks},
		"select-block":    {"select-block <id>", "select a block", (*Studio).cmdSelectBlock},
		"knob":            {"knob <hours|minutes|seconds> <value>", "release a length knob", (*Studio).cmdKnob},
		"length":          {"length", "show the length knobs", (*Studio).cmdLength},
		"delete-block":    {"delete-block <id>", "delete a block", (*Studio).cmdDeleteBlock},
		"stats":           {"stats", "show broker counters", (*Studio).cmdStats},
	}
}

// Exec runs one command line. It must be called on the loop goroutine.
func (s *Studio) Exec(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	cmd, ok := commands[fields[0]]
	if !ok {
		return "", fmt.Errorf("%w: unknown command %q", model.ErrInvalidInput, fields[0])
	}
	args := fields[1:]
	if fields[0] == "thumbnail" {
		args = []string{strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))}
	}
	return cmd.run(s, ctx, args)
}

// REPL reads commands from in until EOF, quit or ctx cancellation. Each line
// runs on the loop goroutine.
func (s *Studio) REPL(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := scanner.Text()

		var result string
		err := s.Do(ctx, func() error {
			var err error
			result, err = s.Exec(ctx, line)
			return err
		})
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		case result != "":
			fmt.Fprintln(out, result)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func parseID(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: missing argument %d", model.ErrInvalidInput, i+1)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", model.ErrInvalidInput, args[i])
	}
	return id, nil
}

func (s *Studio) cmdHelp(context.Context, []string) (string, error) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(&b, "  %-42s %s\n", c.usage, c.help)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Studio) cmdTimelines(context.Context, []string) (string, error) {
	order := s.sequencer.Order()
	if len(order) == 0 {
		return "no timelines", nil
	}

	var b strings.Builder
	for i, id := range order {
		marker := " "
		if id == s.sequencer.Selected() {
			marker = "*"
		}
		el, _ := s.sequencer.ElementID(id)
		fmt.Fprintf(&b, "%s %d: timeline %d (%s)\n", marker, i, id, el)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Studio) cmdThumbnail(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("%w: screen props required", model.ErrInvalidInput)
	}
	id, err := s.sequencer.CreateThumbnail(ctx, json.RawMessage(args[0]))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("timeline %d added", id), nil
}

func (s *Studio) cmdAttach(context.Context, []string) (string, error) {
	s.sequencer.AttachDrag()
	return "drag attached", nil
}

func (s *Studio) cmdDetach(context.Context, []string) (string, error) {
	s.sequencer.DetachDrag()
	return "drag detached", nil
}

func (s *Studio) cmdMove(_ context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	index, err := parseID(args, 1)
	if err != nil {
		return "", err
	}
	if err := s.sequencer.Move(id, int(index)); err != nil {
		return "", err
	}
	return "", nil
}

func (s *Studio) cmdDrop(ctx context.Context, _ []string) (string, error) {
	if err := s.sequencer.Drop(ctx); err != nil {
		return "", err
	}
	return s.cmdTimelines(ctx, nil)
}

func (s *Studio) cmdResequence(ctx context.Context, _ []string) (string, error) {
	if err := s.sequencer.Resequence(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d timelines resequenced", s.sequencer.Len()), nil
}

func (s *Studio) cmdSelectTimeline(_ context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(s.sequencer.SelectTimeline(id), 10), nil
}

func (s *Studio) cmdRemoveTimeline(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	if err := s.sequencer.RemoveTimeline(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("timeline %d removed", id), nil
}

func (s *Studio) cmdDeleteTimeline(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	deleter, ok := s.remote.(timelineDeleter)
	if !ok {
		return "", fmt.Errorf("%w: gateway cannot delete timelines", model.ErrInvalidInput)
	}
	if err := deleter.DeleteTimeline(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("timeline %d deleted on server", id), nil
}

func (s *Studio) cmdBlock(_ context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	if len(args) < 2 {
		return "", fmt.Errorf("%w: block kind required", model.ErrInvalidInput)
	}
	blk, err := s.AddBlock(id, args[1], strings.Join(args[2:], " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("block %d (%s) placed", blk.ID(), blk.Kind().Type), nil
}

func (s *Studio) cmdBlocks(context.Context, []string) (string, error) {
	blocks := s.Blocks()
	if len(blocks) == 0 {
		return "no blocks", nil
	}
	var b strings.Builder
	for _, blk := range blocks {
		marker := " "
		if blk.Selected() {
			marker = "*"
		}
		d := blk.Data()
		fmt.Fprintf(&b, "%s %d %s %q\n", marker, d.BlockID, d.BlockType, d.BlockName)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Studio) cmdSelectBlock(_ context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	blk, ok := s.Block(id)
	if !ok {
		return "", fmt.Errorf("block %d: %w", id, model.ErrBlockNotFound)
	}
	blk.Select()
	return fmt.Sprintf("%s %s", s.panel.Title(), s.panel.Length()), nil
}

var knobIDs = map[string]string{
	"hours":   panel.KnobHours,
	"minutes": panel.KnobMinutes,
	"seconds": panel.KnobSeconds,
}

func (s *Studio) cmdKnob(_ context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: knob and value required", model.ErrInvalidInput)
	}
	knob := s.panel.Knob(knobIDs[args[0]])
	if knob == nil {
		return "", fmt.Errorf("%w: unknown knob %q", model.ErrInvalidInput, args[0])
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a number", model.ErrInvalidInput, args[1])
	}
	knob.Release(value)
	return s.panel.Length().String(), nil
}

func (s *Studio) cmdLength(context.Context, []string) (string, error) {
	return s.panel.Length().String(), nil
}

func (s *Studio) cmdDeleteBlock(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args, 0)
	if err != nil {
		return "", err
	}
	if err := s.DeleteBlock(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("block %d deleted", id), nil
}

func (s *Studio) cmdStats(context.Context, []string) (string, error) {
	st := s.broker.Stats()
	return fmt.Sprintf("fired=%d delivered=%d panics=%d dropped_nested=%d subscriptions=%d owners=%d",
		st.Fired, st.Delivered, st.Panics, st.DroppedNested, st.Subscriptions, st.Owners), nil
}
