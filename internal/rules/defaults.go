package rules

import "codesage/internal/types"

// NoContext is returned by the classifier when no safe pattern matched.
const NoContext = "No specific context detected"

// Default returns the built-in vocabulary.
func Default() *Registry {
	reg, err := NewRegistry(DefaultRules(), DefaultSafePatterns(), nil)
	if err != nil {
		// Built-in tables are static; a failure here is a programming error.
		panic(err)
	}
	return reg
}

// DefaultRules lists the built-in rules, grouped by category.
func DefaultRules() []Rule {
	var out []Rule
	out = append(out, securityRules()...)
	out = append(out, performanceRules()...)
	out = append(out, codeQualityRules()...)
	out = append(out, architectureRules()...)
	out = append(out, cleanCodeRules()...)
	return out
}

func securityRules() []Rule {
	return []Rule{
		{
			ID:             "SEC001",
			Type:           "Hardcoded Credentials",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityCritical,
			Matcher:        MustRegex(`(?i)\b(?:api[_-]?key|password|passwd|pwd|secret|token|credentials?)["']?\s*(?::=|[:=])\s*["'][^"'\n]{10,}["']`),
			Location:       "Hardcoded values detected",
			Description:    "Hardcoded passwords, API keys, or secrets found in code",
			Recommendation: "Use environment variables or secure configuration management",
			Explanation:    "Hardcoded credentials end up in version control where anyone with repository access can read them, which leads to unauthorized access and data breaches.",
			Example:        `String password = "123456";`,
			Fix:            `String password = System.getenv("DB_PASSWORD");`,
			Resource:       "https://owasp.org/www-community/vulnerabilities/Use_of_hard-coded_credentials",
		},
		{
			ID:             "SEC002",
			Type:           "SQL Injection",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityCritical,
			Matcher:        MustRegex(`"(?:SELECT|INSERT|UPDATE|DELETE)\b[^"\n]*"\s*\+|Sprintf\(\s*"(?:SELECT|INSERT|UPDATE|DELETE)\b[^"\n]*%[sv]`),
			Location:       "SQL query construction",
			Description:    "SQL injection vulnerability detected",
			Recommendation: "Use prepared statements or parameterized queries",
			Explanation:    "Concatenating input into SQL lets an attacker change the query and read, modify or delete data.",
			Example:        `String query = "SELECT * FROM users WHERE id = " + userId;`,
			Fix:            `PreparedStatement stmt = conn.prepareStatement("SELECT * FROM users WHERE id = ?"); stmt.setString(1, userId);`,
			Resource:       "https://owasp.org/www-community/attacks/SQL_Injection",
		},
		{
			ID:             "SEC003",
			Type:           "Command Injection",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityCritical,
			Matcher:        MustRegex(`Runtime\.getRuntime\(\)\.exec\([^)\n]*\+|ProcessBuilder\([^)\n]*\+|exec\.Command\([^)\n]*\+|os\.system\([^)\n]*\+|subprocess\.\w+\([^)\n]*\+|child_process\.exec\([^)\n]*\+`),
			Location:       "Command execution",
			Description:    "User-controlled data concatenated into a shell command",
			Recommendation: "Pass arguments as a list and validate them against an allow-list",
			Explanation:    "Building command lines from strings lets crafted input append extra commands that run with the service's privileges.",
			Example:        `Runtime.getRuntime().exec("ping " + host);`,
			Fix:            `new ProcessBuilder("ping", host).start();`,
			Resource:       "https://owasp.org/www-community/attacks/Command_Injection",
		},
		{
			ID:             "SEC004",
			Type:           "Unsafe Deserialization",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityHigh,
			Matcher:        MustRegex(`pickle\.loads?\(|yaml\.load\(|unserialize\(|\beval\(|new\s+ObjectInputStream\(`),
			Location:       "Deserialization or dynamic evaluation",
			Description:    "Untrusted data may be deserialized or evaluated",
			Recommendation: "Use safe loaders and validate input before deserializing it",
			Explanation:    "Deserializers and eval can execute attacker-supplied code when fed untrusted input.",
			Example:        `data = pickle.loads(request.body)`,
			Fix:            `data = json.loads(request.body)`,
			Resource:       "https://owasp.org/www-community/vulnerabilities/Deserialization_of_untrusted_data",
		},
		{
			ID:             "SEC005",
			Type:           "Cross-Site Scripting",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityHigh,
			Matcher:        MustRegex(`\.(?:innerHTML|outerHTML)\s*=[^=]|document\.write\(`),
			Location:       "DOM manipulation",
			Description:    "HTML is written to the page without escaping",
			Recommendation: "Use textContent or sanitize HTML before inserting it",
			Explanation:    "Writing untrusted strings as HTML lets attackers inject scripts into other users' sessions.",
			Example:        `el.innerHTML = userInput;`,
			Fix:            `el.textContent = userInput;`,
			Resource:       "https://owasp.org/www-community/attacks/xss/",
		},
		{
			ID:             "SEC006",
			Type:           "Weak Cryptography",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityMedium,
			Matcher:        MustRegex(`(?i)\b(?:md5|sha1)\.(?:New|Sum)|crypto/(?:md5|sha1|des|rc4)\b|getInstance\(\s*"(?:MD5|SHA-?1|DES)"|hashlib\.(?:md5|sha1)\(`),
			Location:       "Hash or cipher selection",
			Description:    "A broken hash or cipher algorithm is in use",
			Recommendation: "Use SHA-256 or stronger, and a dedicated password hash such as bcrypt",
			Explanation:    "MD5, SHA-1 and DES are vulnerable to collision or brute-force attacks and no longer protect data.",
			Example:        `MessageDigest.getInstance("MD5");`,
			Fix:            `MessageDigest.getInstance("SHA-256");`,
			Resource:       "https://owasp.org/www-project-top-ten/2017/A3_2017-Sensitive_Data_Exposure",
		},
	}
}

func performanceRules() []Rule {
	return []Rule{
		{
			ID:             "PERF001",
			Type:           "N+1 Query Problem",
			Category:       types.CategoryPerformance,
			Severity:       types.SeverityHigh,
			Matcher:        MustRegex(`for\s*\(.*\).*\{.*\..*\..*\}`),
			Location:       "Database queries in loop",
			Description:    "N+1 query problem detected - multiple database calls in loop",
			Recommendation: "Use batch loading or JOIN queries to fetch all data at once",
			Explanation:    "Running one query per row of a previous query multiplies round trips and degrades badly as data grows.",
			Example:        `for (User user : users) { user.getOrders().size(); }`,
			Fix:            `List<Order> orders = orderService.findByUsers(users);`,
			Resource:       "https://www.baeldung.com/hibernate-n-plus-1-problem",
		},
		{
			ID:             "PERF002",
			Type:           "Potential Memory Leak",
			Category:       types.CategoryPerformance,
			Severity:       types.SeverityMedium,
			Matcher:        lineRegex(`new\s+\w+Stream\s*\(`, `try\s*\(`),
			Location:       "Resource management",
			Description:    "Potential memory leak detected",
			Recommendation: "Ensure proper resource cleanup using try-with-resources",
			Explanation:    "Streams that are never closed hold file handles and buffers until the process runs out of them.",
			Example:        `FileInputStream fis = new FileInputStream(file);`,
			Fix:            `try (FileInputStream fis = new FileInputStream(file)) { ... }`,
			Resource:       "https://www.oracle.com/java/technologies/javase/troubleshooting-memory.html",
		},
	}
}

func codeQualityRules() []Rule {
	return []Rule{
		{
			ID:             "QUAL001",
			Type:           "Long Method",
			Category:       types.CategoryCodeQuality,
			Severity:       types.SeverityMedium,
			Matcher:        longMethod(20),
			Location:       "Method length",
			Description:    "Method is too long and does multiple things",
			Recommendation: "Break down into smaller, single-purpose methods",
			Explanation:    "Long methods are hard to read and test, and usually mix several responsibilities.",
			Example:        `public void processUserData() { /* 50+ lines */ }`,
			Fix:            `public void processUserData() { validateUser(); saveUser(); sendNotification(); }`,
			Resource:       "https://refactoring.guru/smells/long-method",
		},
		{
			ID:             "QUAL002",
			Type:           "Code Duplication",
			Category:       types.CategoryCodeQuality,
			Severity:       types.SeverityMedium,
			Matcher:        duplicateBlock(3, 20),
			Location:       "Repeated code blocks",
			Description:    "Duplicate code detected",
			Recommendation: "Extract common functionality into reusable methods",
			Explanation:    "Duplicated logic must be fixed in every copy, and the copies drift apart over time.",
			Example:        `// same validation repeated in several methods`,
			Fix:            `private boolean isValidEmail(String email) { ... }`,
			Resource:       "https://refactoring.guru/smells/duplicate-code",
		},
		{
			ID:             "QUAL003",
			Type:           "Swallowed Error",
			Category:       types.CategoryCodeQuality,
			Severity:       types.SeverityHigh,
			Matcher:        MustRegex(`catch\s*\([^)]*\)\s*\{\s*\}|if\s+err\s*!=\s*nil\s*\{\s*\}|except[^:\n]*:\s*pass\b`),
			Location:       "Error handling block",
			Description:    "An error is caught and silently ignored",
			Recommendation: "Handle, log or propagate the error",
			Explanation:    "Empty error handlers hide failures, so the program continues in a broken state with no trace of why.",
			Example:        `try { save(); } catch (IOException e) {}`,
			Fix:            `try { save(); } catch (IOException e) { log.error("save failed", e); throw e; }`,
			Resource:       "https://cwe.mitre.org/data/definitions/391.html",
		},
	}
}

func architectureRules() []Rule {
	return []Rule{
		{
			ID:             "ARCH001",
			Type:           "Tight Coupling",
			Category:       types.CategoryArchitecture,
			Severity:       types.SeverityMedium,
			Matcher:        MustRegex(`new\s+\w+\s*\(.*\)`),
			Location:       "Class dependencies",
			Description:    "Classes are tightly coupled",
			Recommendation: "Use dependency injection and interfaces to reduce coupling",
			Explanation:    "Constructing collaborators inline makes a class hard to test and ties it to one implementation.",
			Example:        `private DatabaseConnection db = new DatabaseConnection();`,
			Fix:            `public UserService(DatabaseConnection db) { this.db = db; }`,
			Resource:       "https://en.wikipedia.org/wiki/Coupling_(computer_programming)",
		},
		{
			ID:             "ARCH002",
			Type:           "Missing Abstraction",
			Category:       types.CategoryArchitecture,
			Severity:       types.SeverityLow,
			Matcher:        missingAbstraction(),
			Location:       "Concrete implementations",
			Description:    "Missing abstraction layer",
			Recommendation: "Create interfaces or abstract classes for better flexibility",
			Explanation:    "Without an abstraction, swapping an implementation or adding a variant means editing every caller.",
			Example:        `public class EmailService { public void send(String message) { ... } }`,
			Fix:            `public interface NotificationService { void send(String message); }`,
			Resource:       "https://en.wikipedia.org/wiki/Abstraction_(computer_science)",
		},
	}
}

func cleanCodeRules() []Rule {
	return []Rule{
		{
			ID:             "CLEAN001",
			Type:           "Poor Variable Naming",
			Category:       types.CategoryCleanCode,
			Severity:       types.SeverityLow,
			Matcher:        poorNaming(),
			Location:       "Variable and method names",
			Description:    "Variable or method names are not descriptive",
			Recommendation: "Use descriptive names that explain the purpose",
			Explanation:    "Good names document intent; one-letter names force the reader to reverse-engineer it.",
			Example:        `int x = 5;`,
			Fix:            `int userAge = 5;`,
			Resource:       "https://clean-code-developer.com/grades/grade-1-red/meaningful-names/",
		},
		{
			ID:             "CLEAN002",
			Type:           "Magic Numbers",
			Category:       types.CategoryCleanCode,
			Severity:       types.SeverityLow,
			Matcher:        MustRegex(`\b\d{2,}\b`),
			Location:       "Hardcoded numeric values",
			Description:    "Magic numbers without explanation",
			Recommendation: "Use named constants to explain the meaning",
			Explanation:    "Unexplained literals hide their meaning and must be hunted down when the value changes.",
			Example:        `if (age > 18) { ... }`,
			Fix:            `static final int LEGAL_AGE = 18; if (age > LEGAL_AGE) { ... }`,
			Resource:       "https://refactoring.guru/smells/magic-numbers",
		},
		{
			ID:             "CLEAN003",
			Type:           "Unresolved TODO",
			Category:       types.CategoryCleanCode,
			Severity:       types.SeverityLow,
			Matcher:        MustRegex(`\b(?:TODO|FIXME|HACK|XXX)\b`),
			Location:       "Comment markers",
			Description:    "TODO/FIXME marker left in production code",
			Recommendation: "Resolve the marker or link it to a tracked issue",
			Explanation:    "Untracked markers accumulate and the work they describe is forgotten.",
			Example:        `// TODO: handle errors`,
			Fix:            `// See issue #123: retry on transient errors`,
			Resource:       "https://refactoring.guru/smells/comments",
		},
	}
}

// DefaultSafePatterns lists the idioms reported as context, in report order.
func DefaultSafePatterns() []SafePattern {
	return []SafePattern{
		{
			Name:    "external-config",
			Matcher: MustRegex(`@Value\(.*?\)|(?i:getenv)\(|System\.getProperty|process\.env|os\.environ|config\.`),
			Context: "External configuration detected (@Value, getenv) - NOT hardcoded credentials",
		},
		{
			Name:    "http-client",
			Matcher: MustRegex(`HttpClient|HttpRequest|RestTemplate|http\.(?:Get|Post|NewRequest)|requests\.(?:get|post)\(`),
			Context: "HTTP client usage detected - standard HTTP library, NOT SQL injection",
		},
		{
			Name:    "json-handling",
			Matcher: MustRegex(`ObjectMapper|JsonNode|@JsonProperty|json\.(?:Marshal|Unmarshal|NewDecoder|NewEncoder|loads|dumps)|JSON\.(?:parse|stringify)`),
			Context: "JSON handling detected - standard serialization library, NOT a vulnerability",
		},
		{
			Name:    "input-validation",
			Matcher: MustRegex(`Set\.contains\(|allowedValues\.contains\(|(?i:whitelist|allowlist)`),
			Context: "Input validation detected - Whitelist approach (SECURE)",
		},
		{
			Name:    "prepared-statement",
			Matcher: MustRegex(`PreparedStatement|prepareStatement\(|setString\(|setInt\(`),
			Context: "PreparedStatement usage detected - SQL injection prevention (SECURE)",
		},
		{
			Name:    "escaping",
			Matcher: MustRegex(`escapeHtml|escapeJson|escapeXml|(?i:sanitize)|html\.EscapeString|template\.HTMLEscape`),
			Context: "Escape/sanitization functions detected - XSS prevention (SECURE)",
		},
	}
}
