// Package conversation implements the bot's dialog state machine.
//
// # Overview
//
// The conversation package sits between the transport bridge and the
// store. The bridge turns every incoming message into an Inbound and hands
// it to Engine.Handle together with the sender's numeric identity:
//
//	eng := conversation.New(conversation.Deps{
//		Store:      s,
//		Ledger:     ledger.New(s, logger),
//		Dispatcher: broadcast.NewDispatcher(gw, 8, logger),
//		Gateway:    gw,
//		Admins:     cfg.Bot.Admins,
//	}, logger)
//
//	res, err := eng.Handle(ctx, identity, conversation.Text("/start"))
//
// # Routing
//
// One turn is processed at a time per identity. Within a turn:
//
//  1. Known commands ("/start", "/menu", ...) work from any state. An
//     unknown "/word" is ordinary text where the state takes text
//  2. Buttons with a global route (event cards, applications, admin menus)
//     work from any state
//  3. Everything else goes through the (state, kind) transition table
//  4. Input without a route is acknowledged and the state is kept
//
// # Flows
//
// Members register (consent, phone, name), browse events, apply to events
// and to the announcement. Admins create events, maintain the announcement,
// compose broadcasts, pick an audience and manage existing events (export,
// edit, delete, re-broadcast, resend).
//
// # Failures
//
// Invalid input re-prompts and keeps the state. A storage error ends the
// flow: the person is told, the session is cleared and Handle returns the
// error for logging. Failed replies are logged only.
package conversation
