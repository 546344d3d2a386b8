// Package voice implements the push-to-talk voice session of the chat client.
//
// A Session moves between four states:
//
//	Idle ──mic──▶ Recording ──mic──▶ AwaitingTranscription ──▶ Idle
//	  ▲                                                         │
//	  └──────────── Speaking ◀── assistant message ◀────────────┘
//
// Pressing the mic while Speaking cancels the speech first. Captured audio is
// packaged as FLAC and sent to a Transcriber; on success the text is handed to
// OnTranscript and, after SubmitDelay, to OnSubmit. Failures are spoken back
// to the user and reported through OnError, never returned from Toggle.
//
// # Usage
//
//	session, err := voice.New(
//	    voice.WithMicrophone(mic),
//	    voice.WithSpeaker(engine),
//	    voice.WithTranscriber(stt.NewTranscriber(provider, "en-US")),
//	    voice.WithOnSubmit(func(ctx context.Context, text string) {
//	        flow.Submit(ctx, text)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	flow.OnAssistantMessage(func(_ string, m chat.Message) {
//	    session.HandleAssistantMessage(m.Content)
//	})
//
//	session.Toggle(ctx) // start recording
//	session.Toggle(ctx) // stop, transcribe, submit
package voice
