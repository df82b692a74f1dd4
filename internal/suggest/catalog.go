package suggest

const (
	CategoryActionVerbs = "action_verbs"
	CategoryKeywords    = "keywords"
	CategoryMetrics     = "metrics"
)

// 未指定分类时按此顺序合并。
var categoryOrder = []string{CategoryActionVerbs, CategoryKeywords, CategoryMetrics}

var catalog = map[string]map[string][]string{
	CategoryActionVerbs: {
		"experience": {
			"Spearheaded", "Orchestrated", "Championed", "Pioneered", "Revolutionized",
			"Transformed", "Streamlined", "Modernized", "Automated", "Integrated",
		},
		"summary": {
			"Results-driven", "Detail-oriented", "Innovative", "Collaborative", "Strategic",
			"Proactive", "Analytical", "Creative", "Dynamic", "Motivated",
		},
		"skills": {
			"Mastered", "Proficient in", "Skilled at", "Experienced with", "Competent in",
			"Fluent in", "Certified in", "Trained in", "Specialized in", "Adept at",
		},
		"projects": {
			"Developed", "Built", "Created", "Designed", "Engineered", "Launched",
			"Implemented", "Optimized", "Enhanced", "Modernized",
		},
	},
	CategoryKeywords: {
		"experience": {
			"Project management", "Cross-functional collaboration", "Stakeholder engagement",
			"Process improvement", "Budget management", "Team leadership", "Client relations",
			"Quality assurance", "Risk management", "Strategic planning",
		},
		"summary": {
			"Results-oriented", "Detail-focused", "Innovative thinker", "Collaborative team player",
			"Strategic planner", "Proactive problem solver", "Analytical mindset", "Creative approach",
			"Dynamic professional", "Motivated achiever",
		},
		"skills": {
			"Technical proficiency", "Software expertise", "Programming languages", "Design tools",
			"Analytical tools", "Communication platforms", "Project management software",
			"Data visualization", "Cloud computing", "Cybersecurity",
		},
		"projects": {
			"Full-stack development", "Mobile application design", "Web development", "API integration",
			"Database management", "UI/UX design", "Cloud deployment", "Agile methodology",
			"DevOps practices", "Quality assurance",
		},
	},
	CategoryMetrics: {
		"experience": {
			"Increased revenue by 25%", "Reduced costs by 15%", "Improved efficiency by 30%",
			"Saved 100+ hours annually", "Managed $500K budget", "Led team of 15+ members",
			"Achieved 95% customer satisfaction", "Increased sales by 40%", "Reduced processing time by 50%",
			"Implemented system serving 10K+ users",
		},
		"projects": {
			"Delivered project 2 weeks ahead of schedule", "Achieved 99.9% uptime",
			"Reduced page load time by 60%", "Increased user engagement by 35%",
			"Processed 1M+ transactions", "Supported 50K+ concurrent users",
			"Reduced error rate by 80%", "Improved conversion rate by 25%",
			"Generated $1M+ in revenue", "Saved $200K in operational costs",
		},
	},
}
