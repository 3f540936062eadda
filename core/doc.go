// Package core contains the canonical confidential-client contracts, domain
// types, and ambient wiring. Higher-level packages (binding, grant, request,
// transport) depend on this package; core must not depend on them.
package core
