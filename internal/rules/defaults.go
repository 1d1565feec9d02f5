package rules

// DefaultRulesMarkdown is the built-in rule catalog. `dataquality init`
// writes it to disk so teams can edit thresholds and wording in place.
const DefaultRulesMarkdown = `# Data Quality Rules

This catalog defines the checks applied to every dataset before it is
accepted for downstream use. Each rule carries an identifier, a description,
and the conditions that raise a WARNING or a REJECT.

## DQ-01 - Missing values
**Description**: A column contains missing, empty, or null cells. Missing
data weakens any analysis built on the affected columns, and identifier or
core business columns degrade the dataset much faster than free-text ones.
**Detection**: Share of missing cells per column, measured against the total
row count.
WARNING: 20% or more of the values in a column are missing.
REJECT: 40% or more of the values in a column are missing.

## DQ-02 - Empty dataset
**Description**: The dataset contains no data rows at all. No quality
analysis is possible without rows.
REJECT: The dataset has 0 rows.

## DQ-03 - Duplicate rows
**Description**: The dataset contains fully identical rows. Duplicates
inflate counts and bias aggregates. This rule is informational and does not
change the decision on its own.

## DQ-04 - Impossible negative values
**Description**: A column whose domain forbids negative numbers, such as
counts, ages, or monetary amounts, contains values below zero. These values
are impossible rather than merely unusual and point at collection or
ingestion defects.
WARNING: One or more negative values appear in a field that cannot be
negative.

## DQ-05 - Statistical outliers
**Description**: Numeric values fall outside the interquartile fences
[Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Isolated outliers are expected in real data; a
large share of them points at measurement or unit problems.
WARNING: 5% or more of a column's values are outliers.
`
