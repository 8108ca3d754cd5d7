package api

const (
	// PingEndpoint is the endpoint for checking the API status.
	PingEndpoint = "/ping"
	// PoolURLParam is the URL parameter carrying the hex pool identifier.
	PoolURLParam = "poolId"
	// PoolEndpoint is the endpoint to get the public pool info.
	PoolEndpoint = "/pools/{" + PoolURLParam + "}"
	// OwnerEndpoint is the endpoint for creating a pool or transferring its
	// ownership.
	OwnerEndpoint = "/pools/{" + PoolURLParam + "}/owner"
	// ScoresEndpoint is the endpoint for submitting an encrypted rating.
	ScoresEndpoint = "/pools/{" + PoolURLParam + "}/scores"
	// AverageEndpoint is the endpoint for recomputing the encrypted average.
	AverageEndpoint = "/pools/{" + PoolURLParam + "}/average"
	// AccessEndpoint is the endpoint for granting read access on the average.
	AccessEndpoint = "/pools/{" + PoolURLParam + "}/access"
	// PublicEndpoint is the endpoint for making the average publicly
	// decryptable.
	PublicEndpoint = "/pools/{" + PoolURLParam + "}/public"
	// MetricsEndpoint exposes the prometheus metrics.
	MetricsEndpoint = "/metrics"
)
