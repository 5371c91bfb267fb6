// Package auth implements account authentication: credential registration
// and login, email verification, email-based two-factor login codes, OAuth
// identity linking and password recovery.
//
// Responsibilities are split across small services sharing the storage
// interfaces defined here. LoginService is the orchestrator: it sequences
// the account lookup, the verified-email gate, the two-factor gate,
// credential verification and session establishment. Account state gates
// run before the password is ever checked, so an unverified account or a
// pending two-factor challenge short-circuits the attempt regardless of
// the supplied credentials.
//
// One-time secrets (verification links, login codes, reset links) are
// managed by pkg/token; this package rewrites its generic signals into
// purpose-qualified errors such as ErrVerificationTokenExpired before they
// reach callers.
//
// Typical wiring:
//
//	tokens := token.NewService(store)
//	mailer := auth.NewMailer(sender, "https://example.com")
//	verification := auth.NewVerificationService(storage, tokens, mailer)
//	twoFactor := auth.NewTwoFactorService(tokens, mailer)
//	login := auth.NewLoginService(storage, auth.NewBcryptVerifier(storage), verification, twoFactor)
//
//	result, err := login.Login(ctx, sess, auth.LoginRequest{Email: email, Password: password})
package auth
