package liberr

const (
	// Validation (1xxx)
	CodeInvalidArgument = 1000
	CodeMissingRequired = 1001
	CodeInvalidID       = 1002
	CodeInvalidName     = 1003
	CodeUnsupportedType = 1004
	CodeInvalidArtifact = 1005

	// Domain state (2xxx)
	CodeAssetNotFound = 2001
	CodeGroupNotFound = 2002
	CodeTagNotFound   = 2003
	CodeBlobNotFound  = 2004
	CodeNameConflict  = 2101

	// Access (3xxx)
	CodeAccessDenied  = 3001
	CodeSourceMissing = 3002
	CodeAccessRevoked = 3003

	// Store/internal (4xxx)
	CodeStoreFailure  = 4001
	CodeCommitFailed  = 4002
	CodeClosed        = 4003
	CodeQueueRejected = 4004

	// Artifact generation (5xxx)
	CodeDecodeFailed      = 5001
	CodeExtractFailed     = 5002
	CodeAttachFailed      = 5003
	CodeGeneratorRejected = 5004
)

func defaultCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return CodeInvalidArgument
	case KindStore:
		return CodeStoreFailure
	case KindAccess:
		return CodeAccessDenied
	case KindArtifact:
		return CodeDecodeFailed
	default:
		return 0
	}
}
