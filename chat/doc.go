// Package chat contains the live chat clip bot: the session state for one
// located broadcast, the Locator that finds it, and the Poller that watches
// its chat for !clip commands.
//
// Flow:
//   - Locator.Locate runs once at startup. It searches the channel for a live
//     video, reads its live chat id and actual start time, and binds them to
//     the Session. No live broadcast or missing details are fatal; there is no
//     wait-for-live loop.
//   - Poller.Run then repeats PollOnce until the context is cancelled. Each
//     iteration fetches the chat page after the stored cursor, adopts the
//     server's suggested polling interval, and walks the messages in order.
//     A message is considered only if it is newer than the watermark; a
//     !clip command is honored only outside the cooldown and turns into a
//     webhook notification with a deep link to the clip start.
//
// Errors inside an iteration (including quota exhaustion across every
// credential) are logged and the loop carries on after the usual delay.
package chat
