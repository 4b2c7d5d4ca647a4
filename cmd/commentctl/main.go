package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nainong/internal/models"
	"nainong/internal/services"
	"nainong/internal/store"
	"nainong/internal/utils"

	"github.com/peterbourgon/ff/v3"
)

type Options struct {
	BaseURL  string
	GateFile string
	PostKey  string
	Timeout  time.Duration
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: commentctl <list|post> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:], os.Stdout)
	case "post":
		err = runPost(os.Args[2:], os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Available commands: list, post\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultGateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "commentctl", "submit-gate")
}

func commonFlags(fs *flag.FlagSet, opts *Options) {
	fs.StringVar(&opts.BaseURL, "base-url", "http://localhost:8090", "Base URL of the record service")
	fs.StringVar(&opts.GateFile, "gate-file", defaultGateFile(), "File holding the time of the last successful submission")
	fs.StringVar(&opts.PostKey, "post", "", "Slug of the post")
	fs.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Timeout for the whole command")
}

func newSession(opts Options) (*services.CommentSession, func(), error) {
	if opts.PostKey == "" {
		return nil, nil, errors.New("-post is required")
	}
	client := store.NewPocketBaseClient(opts.BaseURL)
	cache, err := services.NewCommentCache(1, nil)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	gate := services.NewSubmitGate(services.NewFileGateStore(opts.GateFile), nil)
	session := services.NewCommentSession(opts.PostKey, client, cache, gate)
	return session, func() {
		session.Close()
		client.Close()
	}, nil
}

func runList(args []string, out io.Writer) error {
	var opts Options
	var maxDepth int
	fs := flag.NewFlagSet("commentctl list", flag.ExitOnError)
	commonFlags(fs, &opts)
	fs.IntVar(&maxDepth, "max-depth", 3, "Maximum indentation level")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("COMMENTCTL")); err != nil {
		return fmt.Errorf("flag error: %w", err)
	}

	session, closeFn, err := newSession(opts)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := session.Load(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d 条评论\n", session.Total())
	printTree(out, session.Tree(), 0, maxDepth)
	return nil
}

func runPost(args []string, out io.Writer) error {
	var opts Options
	var form models.CommentForm
	fs := flag.NewFlagSet("commentctl post", flag.ExitOnError)
	commonFlags(fs, &opts)
	fs.StringVar(&form.Nickname, "nickname", "", "Nickname (required)")
	fs.StringVar(&form.Email, "email", "", "Email, used for the avatar")
	fs.StringVar(&form.Website, "website", "", "Personal website")
	fs.StringVar(&form.Content, "content", "", "Comment content (Markdown)")
	fs.StringVar(&form.ParentID, "reply-to", "", "ID of the comment to reply to")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("COMMENTCTL")); err != nil {
		return fmt.Errorf("flag error: %w", err)
	}

	session, closeFn, err := newSession(opts)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	created, err := session.Submit(ctx, form)
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		for field, msg := range ve.Fields {
			fmt.Fprintf(out, "%s: %s\n", field, msg)
		}
		return errors.New(services.MsgCheckForm)
	}
	if err != nil {
		return err
	}

	log.Printf("Created comment %s on %s", created.ID, opts.PostKey)
	fmt.Fprintln(out, session.Notice())
	fmt.Fprintf(out, "共 %d 条评论\n", session.Total())
	return nil
}

func printTree(out io.Writer, nodes []*models.CommentWithReplies, depth, maxDepth int) {
	indent := strings.Repeat("  ", min(depth, maxDepth))
	for _, n := range nodes {
		pin := ""
		if n.Pinned {
			pin = " [置顶]"
		}
		fmt.Fprintf(out, "%s- %s (%s)%s %s\n", indent, n.Nickname, n.ID, pin, n.CreatedAt.Format("2006-01-02 15:04"))
		for _, line := range strings.Split(utils.SanitizeText(n.Content), "\n") {
			fmt.Fprintf(out, "%s  %s\n", indent, line)
		}
		printTree(out, n.Replies, depth+1, maxDepth)
	}
}
