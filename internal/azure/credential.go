// Package azure holds credential selection shared by the Azure Storage
// adapters (tables, queues, blobs).
package azure

import (
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	// Well-known Azurite development account.
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// IsLocal reports whether serviceURL points at a local emulator over plain
// http.
func IsLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

// AzuriteCredentials returns the emulator account name and key.
func AzuriteCredentials() (string, string) {
	return azuriteAccountName, azuriteAccountKey
}

// DefaultCredential resolves managed identity, environment or CLI
// credentials.
func DefaultCredential() (azcore.TokenCredential, error) {
	slog.Info("using default Azure credentials")
	return azidentity.NewDefaultAzureCredential(nil)
}
