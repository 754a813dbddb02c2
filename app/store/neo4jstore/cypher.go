package neo4jstore

// Every task node carries the owner's key, so (owner, id) identifies a node;
// container ids repeat across owners.
const (
	schemaTaskIndex = "CREATE INDEX task_owner_id IF NOT EXISTS FOR (t:Task) ON (t.owner, t.id)"
	schemaUserEmail = "CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.email IS UNIQUE"

	provisionQuery = "MERGE (u:User {email: $owner}) " +
		"WITH u " +
		"UNWIND $containers AS cid " +
		"MERGE (u)-[:CREATED_BY]->(c:Task {id: cid, owner: $owner}) " +
		"ON CREATE SET c.container = true, c.name = cid"

	ownerQuery = "MATCH (u:User {email: $owner}) RETURN count(u) AS n"

	getQuery = "MATCH (t:Task {id: $id, owner: $owner}) RETURN t"

	parentQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"OPTIONAL MATCH (p:Task)-[:BELONGS_TO]->(t) " +
		"RETURN t, p LIMIT 2"

	childrenQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"OPTIONAL MATCH (t)-[:BELONGS_TO]->(c:Task) " +
		"WITH t, c ORDER BY c.id " +
		"RETURN t, collect(c) AS nodes"

	descendantsQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"OPTIONAL MATCH (t)-[:BELONGS_TO*1..]->(d:Task) " +
		"RETURN t, collect(DISTINCT d) AS nodes"

	// The longest path from a node without a parent down to t.
	pathQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"OPTIONAL MATCH path = (a:Task)-[:BELONGS_TO*1..]->(t) " +
		"WHERE NOT EXISTS { (:Task)-[:BELONGS_TO]->(a) } " +
		"RETURN t, nodes(path) AS nodes " +
		"ORDER BY length(path) DESC LIMIT 1"

	containerQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"OPTIONAL MATCH (c:Task {owner: $owner, container: true})-[:BELONGS_TO*0..]->(t) " +
		"RETURN t, c.id AS container LIMIT 1"

	ancestorQuery = "MATCH (t:Task {id: $id, owner: $owner}) " +
		"RETURN t, EXISTS { (:Task {id: $ancestor, owner: $owner})-[:BELONGS_TO*1..]->(t) } AS found"

	createNodeQuery = "CREATE (t:Task) SET t = $props, t.owner = $owner RETURN t"

	updateQuery = "MATCH (t:Task {id: $id, owner: $owner}) SET t += $fields RETURN t"

	stampQuery = "MATCH (t:Task {owner: $owner}) WHERE t.id IN $ids " +
		"SET t += $fields RETURN count(t) AS n"

	deleteNodesQuery = "OPTIONAL MATCH (t:Task {owner: $owner}) WHERE t.id IN $ids AND t.container IS NULL " +
		"WITH collect(t) AS doomed " +
		"FOREACH (x IN doomed | DETACH DELETE x) " +
		"RETURN size(doomed) AS n"

	createEdgeQuery = "MATCH (p:Task {id: $parent, owner: $owner}), (c:Task {id: $child, owner: $owner}) " +
		"WHERE c.container IS NULL AND p <> c " +
		"CREATE (p)-[:BELONGS_TO]->(c) RETURN count(*) AS n"

	deleteEdgeQuery = "OPTIONAL MATCH (:Task {id: $parent, owner: $owner})-[r:BELONGS_TO]->(:Task {id: $child, owner: $owner}) " +
		"WITH collect(r) AS edges " +
		"FOREACH (x IN edges | DELETE x) " +
		"RETURN size(edges) AS n"

	// One row per task: parent count, owning containers and stamp flags.
	verifyTasksQuery = "MATCH (t:Task {owner: $owner}) WHERE t.container IS NULL " +
		"OPTIONAL MATCH (p:Task)-[:BELONGS_TO]->(t) " +
		"WITH t, count(p) AS parents " +
		"OPTIONAL MATCH (c:Task {owner: $owner, container: true})-[:BELONGS_TO*1..]->(t) " +
		"RETURN t.id AS id, parents, collect(DISTINCT c.id) AS containers, " +
		"t.deleteTime IS NOT NULL AS deleted, t.originalParentId IS NOT NULL AS archived " +
		"ORDER BY id"

	verifyContainersQuery = "MATCH (:Task)-[:BELONGS_TO]->(c:Task {owner: $owner, container: true}) " +
		"RETURN c.id AS id LIMIT 1"
)
