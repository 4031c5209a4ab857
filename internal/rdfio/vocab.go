package rdfio

// Namespaces of the vocabularies used by fan database metadata.
const (
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXSD  = "http://www.w3.org/2001/XMLSchema#"
	NSOWL  = "http://www.w3.org/2002/07/owl#"
	NSDCAT = "http://www.w3.org/ns/dcat#"
	NSDCT  = "http://purl.org/dc/terms/"
	NSSPDX = "http://spdx.org/rdf/terms#"
	NSFOAF = "http://xmlns.com/foaf/0.1/"
	NSSOSA = "http://www.w3.org/ns/sosa/"
	NSSSNO = "https://matthiasprobst.github.io/ssno#"
	NSM4I  = "http://w3id.org/nfdi4ing/metadata4ing#"
)

// Terms referenced by configuration parsing and resolution.
const (
	RDFType = NSRDF + "type"

	OWLVersionInfo = NSOWL + "versionInfo"

	DCATCatalog      = NSDCAT + "Catalog"
	DCATDataset      = NSDCAT + "Dataset"
	DCATHasDataset   = NSDCAT + "dataset"
	DCATDistribution = NSDCAT + "distribution"
	DCATDownloadURL  = NSDCAT + "downloadURL"
	DCATAccessURL    = NSDCAT + "accessURL"
	DCATMediaType    = NSDCAT + "mediaType"
	DCATVersion      = NSDCAT + "version"

	DCTIdentifier = NSDCT + "identifier"
	DCTTitle      = NSDCT + "title"
	DCTCreator    = NSDCT + "creator"
	DCTFormat     = NSDCT + "format"
	DCTHasPart    = NSDCT + "hasPart"

	SPDXChecksum      = NSSPDX + "checksum"
	SPDXChecksumValue = NSSPDX + "checksumValue"
	SPDXAlgorithm     = NSSPDX + "algorithm"
	SPDXAlgorithmIRI  = NSSPDX + "checksumAlgorithm_"

	FOAFName = NSFOAF + "name"

	SOSAHasFeatureOfInterest = NSSOSA + "hasFeatureOfInterest"
	SOSAObservedProperty     = NSSOSA + "observedProperty"

	SSNOStandardName    = NSSSNO + "standardName"
	SSNOHasStandardName = NSSSNO + "hasStandardName"

	M4IHasParameter      = NSM4I + "hasParameter"
	M4IHasNumericalValue = NSM4I + "hasNumericalValue"
	M4IHasStringValue    = NSM4I + "hasStringValue"
	M4IHasUnit           = NSM4I + "hasUnit"
)

// Prefixes maps conventional prefixes to namespaces.
var Prefixes = map[string]string{
	"rdf":  NSRDF,
	"xsd":  NSXSD,
	"owl":  NSOWL,
	"dcat": NSDCAT,
	"dct":  NSDCT,
	"spdx": NSSPDX,
	"foaf": NSFOAF,
	"sosa": NSSOSA,
	"ssno": NSSSNO,
	"m4i":  NSM4I,
}
