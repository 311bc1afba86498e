package ai

// ExtractPrompt drives entity/relationship extraction over one chunk.
// The record grammar is line-oriented: every record is self-contained,
// records are joined with "##" and output ends with <|COMPLETE|>. The
// format string expects the allowed entity types twice.
const ExtractPrompt = `
# Task Context
You are a knowledge-graph extraction assistant. Given a text document, identify all entities of the allowed types and all relationships among the identified entities.

# Allowed Entity Types
%s

# Detailed Task Description & Rules
1. Identify all entities. For each, extract:
   - entity_name: name of the entity, capitalized
   - entity_type: one of the allowed types: %s
   - entity_description: comprehensive description of the entity's attributes and activities
   Format each entity as ("entity"<|>ENTITY_NAME<|>ENTITY_TYPE<|>ENTITY_DESCRIPTION)
2. From the entities identified in step 1, identify all pairs of (source_entity, target_entity) that are clearly related. For each, extract:
   - source_entity: name of the source entity
   - target_entity: name of the target entity
   - relationship_description: explanation of why the entities are related
   - relationship_type: a short categorical tag for the relation, or RELATED if none fits
   - relationship_strength: a numeric score indicating the strength of the relationship
   Format each relationship as ("relationship"<|>SOURCE_ENTITY<|>TARGET_ENTITY<|>RELATIONSHIP_DESCRIPTION<|>RELATIONSHIP_TYPE<|>RELATIONSHIP_STRENGTH)
3. Output every record on its own line, joined by ## between records.
4. When finished, output <|COMPLETE|> on the final line.

# Document
%s
`

// GleanContinuePrompt asks the model for records it missed on the prior
// pass. It is only ever sent with the full conversation history of the
// chunk attached.
const GleanContinuePrompt = `MANY entities and relationships were missed in the last extraction. Add the missing ones below using the same format, joined by ## between records. Do not repeat records you already emitted. End with <|COMPLETE|>.`

// GleanCheckPrompt asks whether another gleaning round is worthwhile.
// The answer must start with YES or NO.
const GleanCheckPrompt = `It appears some entities and relationships may still have been missed. Answer YES if entities or relationships still need to be added, or NO if the extraction is complete. Answer with a single word: YES or NO.`

// SummarizePrompt condenses an overgrown description concatenation into a
// single coherent description. Expects the entity or relation name and the
// concatenated descriptions.
const SummarizePrompt = `
# Task Context
You are a helpful assistant generating a comprehensive summary of the data below.

# Background Data
Name: %s
Description list:
%s

# Immediate Task Description or Request
Write a single comprehensive description merging all information from the description list. Resolve contradictions in favor of the majority of the descriptions. Write in third person and include the entity name for full context. Output only the description text.
`

// CommunityReportPrompt generates a structured report for one community.
// Expects the packed member context (entity and relationship listings).
const CommunityReportPrompt = `
# Task Context
You are an analyst writing a report about a community of entities in a knowledge graph and their relationships.

# Background Data
%s

# Immediate Task Description or Request
Write a report with:
- title: short name of the community, naming its key entities
- summary: an executive summary of the community's overall structure, how its entities relate, and notable information associated with them
- rating: a float score between 0 and 10 for the IMPORTANCE of the community
Base the report strictly on the background data.
`

// QueryPrompt wraps retrieved context for final answer generation.
// Expects the assembled context tables.
const QueryPrompt = `
# Task Context
You are a helpful assistant answering questions about data in the tables provided below.

# Background Data
%s

# Detailed Task Description & Rules
- Answer using only the information in the background data.
- If you don't know the answer, say so; do not make anything up.
- Do not include information without supporting evidence in the data.
`
