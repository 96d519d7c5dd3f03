// Package auth provides registration, login and request identity for the
// service.
//
// Identity is carried by one of two mechanisms, selected by AUTH_MODE at
// startup:
//   - "JWT": login returns a signed HS256 access token; callers send it as
//     "Authorization: Bearer <token>". Nothing is stored server-side.
//   - "session": login writes the user's id and email into the scs session;
//     the browser carries the session cookie.
//
// Independently of the mode, every session holds a CSRF secret created on the
// first request. Each response carries a fresh token derived from that secret
// in the X-CSRF-Token header, and every POST, PUT, PATCH or DELETE must echo
// one back.
//
// # Usage
//
// Wire the pieces in entrypoint:
//
//	sessions := auth.NewSessionManager(store, cfg.Auth)
//	mechanism, err := auth.NewMechanism(cfg.Auth.Mode, sessions, signer)
//	service, err := auth.NewService(credentialStore, mechanism, cfg.Auth)
//	router.Use(sessions.SessionLoadSave(), guard.Middleware(), auth.Middleware(mechanism))
//	auth.NewAuthController(service, mechanism).RegisterRoutes(router, auth.RequireAuth())
//
// Extract the caller in handlers:
//
//	identity := auth.GetIdentity(c) // nil when anonymous
package auth
