package extractor

import (
	"bytes"

	"modport/internal/ir"
)

// DetectLoader sniffs the loader API from import paths and well-known
// annotations in raw source text. Returns false when neither loader is
// recognizable; callers then need an explicit loader choice.
func DetectLoader(source []byte) (ir.Loader, bool) {
	forge := bytes.Contains(source, []byte("net.minecraftforge")) ||
		bytes.Contains(source, []byte("net.neoforged")) ||
		bytes.Contains(source, []byte("@Mod("))
	fabric := bytes.Contains(source, []byte("net.fabricmc")) ||
		bytes.Contains(source, []byte("ModInitializer"))

	switch {
	case forge && !fabric:
		return ir.LoaderForge, true
	case fabric && !forge:
		return ir.LoaderFabric, true
	case forge && fabric:
		// Mixed signals; Forge annotations are the stronger marker.
		return ir.LoaderForge, true
	default:
		return "", false
	}
}
