// Package matrix connects the bot to a Matrix homeserver.
//
// The Bridge syncs with the homeserver, converts message events into
// conversation inputs and hands them to the engine. The Notifier is the
// outbound side: it implements notify.Gateway by writing into each
// person's direct room.
//
// Matrix has no inline keyboards. Buttons are rendered as hint lines such
// as "Да: `!events_yes`" and a reply starting with "!" is read back as the
// button press. A reply of the form "tel:+79001234567" shares a phone
// number.
package matrix
