/*package lib contains the functions behind each of bcmat's modes: parsing
configuration, checking it, and running the distributed matrix operations it
asks for. Almost all of the heavy lifting is done by lib/'s subpackages.
*/
package lib

var (
	// Version is the version of the software. This can potentially be used
	// to differentiate between breaking changes to the checkpoint format.
	Version uint64 = 0x1
)
