// Package postpilot provides an AI posting bot for X with human-in-the-loop
// review.
//
// Each posting cycle generates a candidate post with a grok model, renders a
// companion image, presents both to a reviewer over a channel (Telegram in
// production) and publishes the approved text. The pipeline is built from
// pluggable service layers:
//
//   - generator – content generation from persona and posting history
//   - imaging   – image synthesis and caption overlays
//   - approval  – pending drafts and the decision hand-off
//   - channel   – the reviewer-facing surface
//   - scheduler – the randomized posting loop
//
// Postpilot is designed to be embedded in host applications.  End-users
// typically interact with the bot via the high-level Service façade exposed
// by the root package:
//
//	cfg, _ := config.Load("")
//	srv, _ := postpilot.New(ctx, cfg)
//	_ = srv.Start(ctx)
//	defer srv.Shutdown()
//
// For more details see the README and individual sub-packages.
package postpilot
