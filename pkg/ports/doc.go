/*
Package ports defines the driven ports (interfaces) of the scenario editor.

These interfaces decouple the editor core from external collaborators, allowing
the same editing session to work against a remote store, a local library or an
in-memory fake.

# Key Interfaces

  - ScenarioStore: create, update, fetch, list and delete scenario documents.
  - DraftStore: persists in-progress editing sessions between requests.
  - DistributedLocker: serializes access to a session across replicas.
  - Identity: supplies the current user id and request credentials.
  - Notifier: presents transient, toast-level notices.
*/
package ports
