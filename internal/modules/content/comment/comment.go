// Package comment implements comment threads attached to content items.
//
// A thread is addressed by a source table and a parent id. Visitors read the
// published comments page by page and post new ones through the thread's
// form; the form also resolves the double opt-in links that subscribers
// receive by mail. Back end users approve held comments and add replies.
//
//   - types.go, messages.go: request and result types, visitor facing texts
//   - store.go, subscriptions.go: gorm persistence
//   - bbcode.go, sanitize.go, form.go, spam.go: input handling
//   - optin.go, submission.go, moderation.go, listing.go: workflows
//   - handler.go: HTTP routes
package comment
