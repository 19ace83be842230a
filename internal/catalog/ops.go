package catalog

// Operation names of the gateway surface. Clients see these as tool names;
// the workflow gate treats them as exempt by default.
const (
	OpListCategories = "list_categories"
	OpListToolNames  = "list_tool_names"
	OpGetToolSchemas = "get_tool_schemas"
	OpExecuteTool    = "execute_tool"
	OpExecuteBatch   = "execute_batch"
	OpValidateChain  = "validate_chain"
	OpSessionStats   = "session_stats"
)

// SurfaceOperations returns every operation name of the gateway surface.
func SurfaceOperations() []string {
	return []string{
		OpListCategories,
		OpListToolNames,
		OpGetToolSchemas,
		OpExecuteTool,
		OpExecuteBatch,
		OpValidateChain,
		OpSessionStats,
	}
}

// Resource keys recorded with the workflow gate when the catalog is queried.
// Every query records its query-level key, so a call naming only unknown
// items still counts as discovery.
const (
	ResourceCategories     = "categories"
	ResourceSchemas        = "schemas"
	resourceCategoryPrefix = "category:"
	resourceSchemaPrefix   = "schema:"
)

// CategoryResource returns the access-log key for a category listing.
func CategoryResource(name string) string { return resourceCategoryPrefix + name }

// SchemaResource returns the access-log key for a tool schema fetch.
func SchemaResource(tool string) string { return resourceSchemaPrefix + tool }
