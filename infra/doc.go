// Package infra contains technical adapters such as delivery transports,
// metrics exporters and the error tracker. These packages depend only on the
// interfaces defined in the core packages.
package infra
