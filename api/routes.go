package api

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Registry endpoints
	AddressURLParam       = "address"                                    // URL parameter for an identity address
	RegistryEndpoint      = "/registry"                                  // GET: Registry state
	AdministratorEndpoint = "/registry/administrator"                    // POST: Transfer administration
	SubmittersEndpoint    = "/registry/submitters"                       // GET: List submitters, POST: Add submitter
	SubmitterEndpoint     = SubmittersEndpoint + "/{" + AddressURLParam + "}" // DELETE: Remove submitter
	PauseEndpoint         = "/registry/pause"                            // POST: Engage or release the pause switch
	CooldownEndpoint      = "/registry/cooldown"                         // POST: Update the cooldown

	// Batch endpoints
	BatchURLParam        = "batchId"                          // URL parameter for batch ID
	BatchesEndpoint      = "/batches"                         // POST: Open a new batch
	BatchEndpoint        = BatchesEndpoint + "/{" + BatchURLParam + "}" // GET: Batch info
	CurrentBatchEndpoint = BatchesEndpoint + "/current"       // GET: Current batch info
	CloseBatchEndpoint   = CurrentBatchEndpoint + "/close"    // POST: Close the current batch

	// Score endpoints
	ScoresEndpoint = "/scores" // POST: Submit an encrypted score

	// Decryption endpoints
	RequestURLParam          = "requestId"                                     // URL parameter for request ID
	DecryptionsEndpoint      = "/decryptions"                                  // GET: List requests, POST: Request decryption
	DecryptionEndpoint       = DecryptionsEndpoint + "/{" + RequestURLParam + "}" // GET: Request status
	DecryptionResultEndpoint = DecryptionEndpoint + "/result"                  // POST: Ingest an oracle result

	// Event journal endpoint
	EventsEndpoint = "/events" // GET: Audit trail paging, parameters: from, limit
)

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
}
