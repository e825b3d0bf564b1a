// Package api defines the domain model and the boundary to the AskBase
// backend: document, grant, principal and conversation shapes, the Backend
// collaborator interface, and the client-side error taxonomy.
//
// The package is transport-agnostic. It specifies what the backend provides,
// not how bytes move; an HTTP implementation lives with the consumer.
package api
