// Package session manages the client-side lifecycle of an authentication
// session: establishing it on boot, keeping it fresh ahead of token expiry,
// revalidating it when the application returns to the foreground, and tearing
// it down on logout or credential invalidation.
//
// Lifecycle:
//   - A Manager owns the current Session and UserProfile as a single unit.
//     Both are swapped together on every transition so consumers never observe
//     one user's profile under another user's session.
//   - Lifecycle state follows uninitialized -> initializing ->
//     {authenticated, unauthenticated} -> terminated. Transitions are driven
//     by Initialize, provider auth events, the refresh scheduler, and
//     visibility revalidation.
//
// Profiles:
//   - The Synchronizer reconciles a provider identity against the profile
//     store, provisioning new records with default entitlements. It never
//     fails: store errors produce a degraded profile with SyncError set so
//     the session stays usable.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing session
//     establishment, refresh, forced sign-out, and profile degradation.
//     Sinks run best-effort (errors are logged) so you can forward events to
//     a database or queue without blocking the lifecycle.
package session
