// Package integration contains the Integration bounded context.
// This context describes how the middleware talks to external suppliers.
//
// Key concepts:
//   - SupplierConnector: port every supplier adapter implements (catalog, prices, stock, orders)
//   - SupplierError: typed failure with a kind that decides whether a call may be retried
//   - ConnectorFactory / ConnectorRegistry: type code to adapter resolution, checked at startup
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
