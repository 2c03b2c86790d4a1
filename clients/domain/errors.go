package domain

import "errors"

var (
	// ErrClientNotFound se retorna cuando no se encuentra un cliente
	ErrClientNotFound = errors.New("client not found")

	// ErrLocationNotFound se retorna cuando no se encuentra una ubicación
	ErrLocationNotFound = errors.New("service location not found")

	// ErrTopicNotFound se retorna cuando no se encuentra una pregunta
	ErrTopicNotFound = errors.New("topic entry not found")

	// ErrDuplicateClient se retorna cuando el slug ya existe
	ErrDuplicateClient = errors.New("client with this slug already exists")

	// ErrEmptyTopicPool: el cliente no tiene ninguna pregunta disponible; es fatal para el ciclo
	ErrEmptyTopicPool = errors.New("topic pool is empty")

	// ErrNoActiveLocations: el cliente no tiene ubicaciones activas
	ErrNoActiveLocations = errors.New("client has no active service locations")

	// ErrClientInUse se retorna al borrar un cliente con items de contenido
	ErrClientInUse = errors.New("client is referenced by content items")
)
