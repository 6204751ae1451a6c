package topics

import "regexp"

// keywordEntry is the flattened form of the technical keyword dictionary:
// every keyword maps to the category.topic it belongs to.
type keywordEntry struct {
	category string
	topic    string
}

// technicalKeywords groups every recognized keyword phrase under its
// category and topic, mirroring the original system's nested dictionary.
var technicalKeywords = map[string]map[string][]string{
	"data_structures": {
		"array":       {"array", "arrays", "list", "arraylist", "vector", "1d array", "2d array"},
		"linked_list": {"linked list", "linkedlist", "singly linked", "doubly linked", "circular linked"},
		"stack":       {"stack", "stacks", "lifo", "push", "pop", "stack overflow"},
		"queue":       {"queue", "queues", "fifo", "enqueue", "dequeue", "circular queue", "priority queue"},
		"tree":        {"tree", "trees", "binary tree", "bst", "binary search tree", "balanced tree", "avl tree", "red black tree"},
		"heap":        {"heap", "heaps", "min heap", "max heap", "binary heap", "heapify"},
		"hash_table":  {"hash", "hashmap", "hash table", "hash set", "dictionary", "map", "hashtable"},
		"graph":       {"graph", "graphs", "vertices", "edges", "adjacency", "directed graph", "undirected graph", "weighted graph"},
		"trie":        {"trie", "prefix tree", "suffix tree", "radix tree"},
	},
	"algorithms": {
		"sorting":             {"sort", "sorting", "merge sort", "quick sort", "heap sort", "bubble sort", "insertion sort", "selection sort"},
		"searching":           {"search", "binary search", "linear search", "dfs", "bfs", "depth first", "breadth first"},
		"dynamic_programming": {"dynamic programming", "dp", "memoization", "tabulation", "optimal substructure", "overlapping subproblems"},
		"greedy":              {"greedy", "greedy algorithm", "greedy approach", "local optimum"},
		"recursion":           {"recursion", "recursive", "backtracking", "divide and conquer"},
		"two_pointers":        {"two pointer", "two pointers", "sliding window", "fast slow pointer"},
		"string_algorithms":   {"string", "substring", "string matching", "kmp", "rabin karp", "string manipulation"},
	},
	"system_design": {
		"scalability":   {"scalability", "scale", "scaling", "horizontal scaling", "vertical scaling", "scale out", "scale up"},
		"load_balancer": {"load balancer", "load balancing", "nginx", "haproxy", "round robin"},
		"database":      {"database", "sql", "nosql", "mongodb", "mysql", "postgresql", "cassandra", "dynamodb"},
		"caching":       {"cache", "caching", "redis", "memcached", "cdn", "content delivery network"},
		"microservices": {"microservice", "microservices", "api", "rest api", "service oriented", "distributed systems"},
		"messaging":     {"queue", "kafka", "rabbitmq", "pub sub", "message queue", "event driven"},
		"consistency":   {"consistency", "acid", "cap theorem", "eventual consistency", "strong consistency"},
	},
	"programming_concepts": {
		"oop":             {"oop", "object oriented", "inheritance", "polymorphism", "encapsulation", "abstraction"},
		"concurrency":     {"thread", "threading", "concurrency", "parallel", "async", "synchronization", "mutex", "semaphore"},
		"design_patterns": {"singleton", "factory", "observer", "decorator", "strategy", "builder", "adapter"},
		"complexity":      {"time complexity", "space complexity", "big o", "o(n)", "o(log n)", "o(n^2)", "complexity analysis"},
	},
	"technologies": {
		"languages":  {"java", "python", "c++", "cpp", "javascript", "go", "rust", "scala", "kotlin"},
		"frameworks": {"spring", "django", "react", "angular", "express", "flask", "nodejs"},
		"cloud":      {"aws", "azure", "gcp", "docker", "kubernetes", "ec2", "s3", "lambda"},
		"databases":  {"mysql", "postgresql", "mongodb", "cassandra", "dynamodb", "elasticsearch"},
	},
}

// categoryImportance multiplies a topic's raw importance score by how
// load-bearing its category is judged to be for interview prep.
var categoryImportance = map[string]float64{
	"algorithms":            1.6,
	"data_structures":       1.5,
	"system_design":         1.8,
	"programming_concepts":  1.3,
	"technologies":          1.1,
}

// buildKeywordLookup flattens technicalKeywords into a single keyword ->
// (category, topic) map; compileKeywordLookup then compiles one
// word-boundary regex per keyword.
func buildKeywordLookup() map[string]keywordEntry {
	lookup := make(map[string]keywordEntry)
	for category, subcats := range technicalKeywords {
		for topic, keywords := range subcats {
			for _, kw := range keywords {
				lookup[kw] = keywordEntry{category: category, topic: topic}
			}
		}
	}
	return lookup
}

type compiledKeyword struct {
	keyword string
	entry   keywordEntry
	re      *regexp.Regexp
}

func compileKeywordLookup(lookup map[string]keywordEntry) []compiledKeyword {
	out := make([]compiledKeyword, 0, len(lookup))
	for kw, entry := range lookup {
		out = append(out, compiledKeyword{
			keyword: kw,
			entry:   entry,
			re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return out
}

// contextPattern ties a compiled capture-group regex back to the context
// family it belongs to (purely informational; extraction only uses the
// capture itself).
type contextPattern struct {
	family string
	re     *regexp.Regexp
}

// contextPatternDefs looks for phrases like "implemented a binary search tree"
// and captures the term that follows a discussion verb, which is then
// cross-checked against the keyword lookup.
var contextPatternDefs = map[string][]string{
	"algorithm_discussion": {
		`(?i)implement(?:ed|ing)?\s+(\w+(?:\s+\w+){0,2})`,
		`(?i)(?:write|code|solve)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:algorithm|solution)`,
		`(?i)(?:asked|given)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:problem|question)`,
	},
	"data_structure_usage": {
		`(?i)us(?:e|ed|ing)\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})`,
		`(?i)implement(?:ed|ing)?\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})`,
		`(?i)(?:maintain|store|keep)\s+(?:data|elements|items)\s+in\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})`,
	},
	"system_design_discussion": {
		`(?i)design(?:ed|ing)?\s+(?:a|an)?\s*(\w+(?:\s+\w+){0,2})\s+(?:system|service|application)`,
		`(?i)(?:scale|scaling)\s+(?:the\s+)?(\w+(?:\s+\w+){0,2})`,
		`(?i)(?:handle|managing)\s+(\w+(?:\s+\w+){0,2})\s+(?:load|traffic|requests)`,
	},
}

func compileContextPatterns() []contextPattern {
	var out []contextPattern
	for family, patterns := range contextPatternDefs {
		for _, p := range patterns {
			out = append(out, contextPattern{family: family, re: regexp.MustCompile(p)})
		}
	}
	return out
}

// difficultyPatternDefs scores how easy/medium/hard an experience reads.
var difficultyPatternDefs = map[string][]string{
	"easy": {
		`(?i)(?:simple|easy|basic|straightforward|trivial)`,
		`(?i)(?:beginner|junior|entry.level)`,
		`(?i)(?:took|solved|finished)\s+(?:quickly|fast|easily)`,
	},
	"medium": {
		`(?i)(?:medium|moderate|intermediate|standard)`,
		`(?i)(?:took|required)\s+(?:some|considerable)\s+(?:time|thought|effort)`,
		`(?i)(?:tricky|challenging)\s+(?:but|however)\s+(?:manageable|doable)`,
	},
	"hard": {
		`(?i)(?:hard|difficult|challenging|tough|complex|advanced)`,
		`(?i)(?:struggled|difficulty|trouble|hard time)`,
		`(?i)(?:senior|experienced|expert).level`,
		`(?i)(?:took|required)\s+(?:long|much|lot of)\s+(?:time|effort|thinking)`,
	},
}

func compileDifficultyPatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(difficultyPatternDefs))
	for level, patterns := range difficultyPatternDefs {
		compiled := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			compiled[i] = regexp.MustCompile(p)
		}
		out[level] = compiled
	}
	return out
}

// advancedPatternDefs catches concepts that direct keyword matching misses
// (compound phrases, code fragments like "dp[").
var advancedPatternDefs = map[string][]string{
	"algorithms.dynamic_programming": {
		`dp\s*\[`,
		`(?i)memoization|tabulation`,
		`(?i)optimal substructure`,
		`(?i)overlapping subproblems`,
		`(?i)knapsack|lis|lcs|edit.distance`,
	},
	"algorithms.two_pointers": {
		`(?i)two.pointer`,
		`(?i)left.*right.*pointer`,
		`(?i)sliding.window`,
		`(?i)fast.*slow.*pointer`,
	},
	"system_design.scalability": {
		`(?i)horizontal.*scaling`,
		`(?i)vertical.*scaling`,
		`(?i)scale.*million.*users`,
		`(?i)handle.*concurrent.*requests`,
		`(?i)load.*balancing`,
	},
	"data_structures.tree": {
		`(?i)binary.*search.*tree`,
		`(?i)left.*child.*right.*child`,
		`(?i)root.*node.*leaf`,
		`(?i)inorder.*preorder.*postorder`,
		`(?i)tree.*traversal`,
	},
}

func compileAdvancedPatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(advancedPatternDefs))
	for topic, patterns := range advancedPatternDefs {
		compiled := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			compiled[i] = regexp.MustCompile(p)
		}
		out[topic] = compiled
	}
	return out
}

// roundTypeKeywords classifies interview rounds by the vocabulary used to
// describe them.
var roundTypeKeywords = map[string][]string{
	"coding":                {"coding", "algorithm", "data structure", "leetcode", "hackerrank"},
	"system_design":         {"system design", "architecture", "scalability", "design"},
	"behavioral":            {"behavioral", "culture fit", "leadership", "teamwork", "conflict"},
	"technical_discussion":  {"technical discussion", "past projects", "experience", "deep dive"},
}

func compileRoundTypePatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(roundTypeKeywords))
	for roundType, keywords := range roundTypeKeywords {
		compiled := make([]*regexp.Regexp, len(keywords))
		for i, kw := range keywords {
			compiled[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		out[roundType] = compiled
	}
	return out
}

// insightPatterns capture freeform advice sentences.
var insightPatternDefs = []string{
	`(?i)(?:tip|advice|suggestion|recommendation|key|important)[:.]?\s*(.{20,100})`,
	`(?i)(?:focus on|prepare|study|practice)\s+(.{20,100})`,
	`(?i)(?:learnt|learned|realized|understood)\s+(.{20,100})`,
}

func compileInsightPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(insightPatternDefs))
	for i, p := range insightPatternDefs {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// difficultyIndicatorPatternDefs spot concrete time-cost phrases.
var difficultyIndicatorPatternDefs = []string{
	`(?i)(?:took|spent|required)\s+(\d+)\s*(?:hours?|minutes?|days?)`,
	`(?i)(?:quick|fast|quickly|immediately)`,
	`(?i)(?:long|lengthy|extended|struggled|difficult)`,
}

func compileDifficultyIndicatorPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(difficultyIndicatorPatternDefs))
	for i, p := range difficultyIndicatorPatternDefs {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
