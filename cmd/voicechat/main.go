// voicechat: terminal chat client with push-to-talk voice input and spoken
// replies. Generation and transcription run against the hosted providers
// directly, or through a voicechat-server when -server is set.
//
// With -server, the -list, -ask, -delete and -watch flags run headless
// against the server's conversations instead of starting the UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/internal/log"
	"github.com/teslashibe/go-voicechat/internal/services"
	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/format"
	"github.com/teslashibe/go-voicechat/pkg/speech"
	"github.com/teslashibe/go-voicechat/pkg/tui"
	"github.com/teslashibe/go-voicechat/pkg/voice"
)

func main() {
	config.Load()

	var (
		server   = flag.String("server", config.String("VOICECHAT_SERVER", ""), "voicechat-server base URL (empty: call providers directly)")
		backend  = flag.String("audio", config.String("AUDIO_BACKEND", string(audioio.BackendAuto)), "Audio backend: auto, malgo, mock")
		noVoice  = flag.Bool("no-voice", config.Bool("NO_VOICE", false), "Disable microphone and speech")
		logLevel = flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
		logFile  = flag.String("log-file", config.String("LOG_FILE", filepath.Join(config.DefaultStorePath(), "voicechat.log")), "Log file (the terminal belongs to the UI)")

		remote remoteOptions
	)
	flag.BoolVar(&remote.list, "list", false, "List the server's conversations")
	flag.StringVar(&remote.ask, "ask", "", "Send a message to the server and print the reply")
	flag.StringVar(&remote.chat, "chat", "", "Conversation for -ask (empty: create one)")
	flag.StringVar(&remote.delete, "delete", "", "Delete a server conversation by ID")
	flag.BoolVar(&remote.watch, "watch", false, "Print server events until interrupted")
	flag.Parse()

	out, closeLog, err := openLog(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicechat: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	log.Init(*logLevel, out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if remote.any() {
		if err := headless(ctx, *server, remote); err != nil {
			fmt.Fprintf(os.Stderr, "voicechat: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := options{server: *server, backend: *backend, voice: !*noVoice}
	if err := run(ctx, opts); err != nil {
		log.Error("voicechat exited", "error", err)
		fmt.Fprintf(os.Stderr, "voicechat: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	server  string
	backend string
	voice   bool
}

func headless(ctx context.Context, server string, opts remoteOptions) error {
	if server == "" {
		return errNoServer
	}
	client, err := api.NewClient(server, api.WithLogger(log.L()))
	if err != nil {
		return err
	}
	return runRemote(ctx, client, opts, os.Stdout)
}

func openLog(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func run(ctx context.Context, opts options) error {
	logger := log.L()

	storeCfg := config.StoreFromEnv()
	storage, err := services.Storage(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", storeCfg.Backend, err)
	}
	defer storage.Close()

	store := chat.NewStore(ctx, storage, chat.WithStoreLogger(logger))
	if store.Len() == 0 {
		if _, err := store.Create(ctx); err != nil {
			logger.Warn("initial conversation not saved", "error", err)
		}
	}

	gen, transcriber, closeProviders, err := backends(ctx, opts.server, logger)
	if err != nil {
		return err
	}
	defer closeProviders()

	flow := chat.NewSubmitFlow(store, gen, chat.WithFlowLogger(logger))
	notifier := tui.NewNotifier(logger)
	defer notifier.Close()

	flow.OnAssistantMessage(notifier.AssistantMessage)
	flow.OnFailure(notifier.SubmitFailed)

	cfg := tui.Config{
		Store:  store,
		Flow:   flow,
		Logger: logger,
	}

	if opts.voice && transcriber != nil {
		session, err := newVoiceSession(opts.backend, transcriber, store, flow, notifier, logger)
		if err != nil {
			logger.Warn("voice disabled", "error", err)
		} else {
			defer session.Close()
			flow.OnAssistantMessage(func(_ string, msg chat.Message) {
				session.HandleAssistantMessage(format.Plain(format.Format(msg.Content)))
			})
			cfg.Voice = session
		}
	}

	model, err := tui.New(ctx, cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	go notifier.Run(p)

	logger.Info("voicechat started",
		"conversations", store.Len(),
		"storage", storage.Name(),
		"server", opts.server,
		"voice", cfg.Voice != nil,
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// backends returns the generator and transcriber, either remote through a
// voicechat-server or built from provider credentials.
func backends(ctx context.Context, server string, logger *slog.Logger) (chat.Generator, voice.Transcriber, func(), error) {
	if server != "" {
		client, err := api.NewClient(server, api.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.Health(ctx); err != nil {
			logger.Warn("server health check failed", "server", server, "error", err)
		}
		return client, client, func() {}, nil
	}

	providers := config.ProvidersFromEnv()
	gen, genProvider, err := services.Generator(ctx, providers, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	closers := []io.Closer{genProvider}
	var transcriber voice.Transcriber
	t, sttProvider, err := services.Transcriber(providers, logger)
	if err != nil {
		logger.Warn("transcription unavailable", "error", err)
	} else {
		transcriber = t
		closers = append(closers, sttProvider)
	}

	return gen, transcriber, func() {
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

func newVoiceSession(backendName string, transcriber voice.Transcriber, store *chat.Store, flow *chat.SubmitFlow, notifier *tui.Notifier, logger *slog.Logger) (*voiceSession, error) {
	backend, err := audioio.ParseBackend(backendName)
	if err != nil {
		return nil, err
	}

	micCfg := audioio.DefaultConfig()
	micCfg.Backend = backend
	mic, err := audioio.NewSource(micCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("microphone: %w", err)
	}

	speaker, provider := newSpeaker(backend, logger)

	session, err := voice.New(
		voice.WithMicrophone(mic),
		voice.WithSpeaker(speaker),
		voice.WithTranscriber(transcriber),
		voice.WithSubmitDelay(config.SubmitDelay()),
		voice.WithOnTranscript(notifier.Transcript),
		voice.WithOnSubmit(notifier.VoiceSubmitter(store, flow)),
		voice.WithOnError(notifier.VoiceError),
		voice.WithOnStateChange(notifier.StateChanged),
		voice.WithLogger(logger),
	)
	if err != nil {
		speaker.Close()
		mic.Close()
		provider.Close()
		return nil, err
	}
	return &voiceSession{Session: session, provider: provider}, nil
}

// voiceSession also owns the speech provider, which the engine does not close.
type voiceSession struct {
	*voice.Session
	provider io.Closer
}

func (v *voiceSession) Close() error {
	return errors.Join(v.Session.Close(), v.provider.Close())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newSpeaker falls back to a silent speaker when no speech provider or
// output device is available.
func newSpeaker(backend audioio.Backend, logger *slog.Logger) (speech.Speaker, io.Closer) {
	provider, err := services.Speech(config.ProvidersFromEnv(), logger)
	if err != nil {
		logger.Warn("speech output disabled", "error", err)
		return speech.NewSilent(logger), nopCloser{}
	}

	sinkCfg := audioio.PlaybackConfig()
	sinkCfg.Backend = backend
	sink, err := audioio.NewSink(sinkCfg, logger)
	if err != nil {
		provider.Close()
		logger.Warn("speaker unavailable", "error", err)
		return speech.NewSilent(logger), nopCloser{}
	}

	engine, err := speech.New(provider, sink, speech.WithLogger(logger))
	if err != nil {
		provider.Close()
		sink.Close()
		logger.Warn("speech engine unavailable", "error", err)
		return speech.NewSilent(logger), nopCloser{}
	}
	return engine, provider
}
