/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the service layer from storage implementations, so the
same graphs and runs can live in process memory or in a shared Redis cache.

# Key Interfaces

  - GraphStore: saves, loads and lists graph definitions.
  - RunStore: saves, loads and lists run records.
  - Store: both of the above.

Adapters verify themselves against RunStoreContract.
*/
package ports
