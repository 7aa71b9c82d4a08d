package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprString renders an expression back to compact source-like text,
// for diagnostics and logging.
func ExprString(expr Expr) string {
	var sb strings.Builder
	showExprWalker(&sb, expr)
	return sb.String()
}

func showExprWalker(sb *strings.Builder, expr Expr) {
	if expr == nil {
		sb.WriteString("<nil>")
		return
	}
	switch expr := expr.(type) {
	case *NameExpr:
		sb.WriteString(expr.Name)
	case *IntLit:
		sb.WriteString(strconv.FormatInt(expr.Value, 10))
	case *FloatLit:
		sb.WriteString(expr.Text)
	case *StringLit:
		sb.WriteString(strconv.Quote(expr.Value))
	case *BytesLit:
		sb.WriteString("b" + strconv.Quote(expr.Value))
	case *BoolLit:
		if expr.Value {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case *NoneLit:
		sb.WriteString("None")
	case *EllipsisLit:
		sb.WriteString("...")
	case *TupleExpr:
		sb.WriteString("(")
		for i, elem := range expr.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			showExprWalker(sb, elem)
		}
		if len(expr.Elems) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case *ListExpr:
		sb.WriteString("[")
		for i, elem := range expr.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			showExprWalker(sb, elem)
		}
		sb.WriteString("]")
	case *AttributeExpr:
		showExprWalker(sb, expr.Value)
		sb.WriteString("." + expr.Attr)
	case *SubscriptExpr:
		showExprWalker(sb, expr.Value)
		sb.WriteString("[")
		showExprWalker(sb, expr.Index)
		sb.WriteString("]")
	case *CallExpr:
		showExprWalker(sb, expr.Func)
		sb.WriteString("(")
		for i, arg := range expr.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			showExprWalker(sb, arg)
		}
		for i, kw := range expr.Keywords {
			if i > 0 || len(expr.Args) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(kw.Name + "=")
			showExprWalker(sb, kw.Value)
		}
		sb.WriteString(")")
	case *BinaryExpr:
		sb.WriteString("(")
		showExprWalker(sb, expr.Left)
		sb.WriteString(" " + expr.Op.String() + " ")
		showExprWalker(sb, expr.Right)
		sb.WriteString(")")
	case *UnaryExpr:
		sb.WriteString(expr.Op.String())
		if expr.Op == OpNot {
			sb.WriteString(" ")
		}
		showExprWalker(sb, expr.Operand)
	case *BoolExpr:
		sb.WriteString("(")
		for i, v := range expr.Values {
			if i > 0 {
				sb.WriteString(" " + expr.Op.String() + " ")
			}
			showExprWalker(sb, v)
		}
		sb.WriteString(")")
	case *CompareExpr:
		showExprWalker(sb, expr.Left)
		for i, op := range expr.Ops {
			sb.WriteString(" " + op.String() + " ")
			showExprWalker(sb, expr.Comparators[i])
		}
	case *StarredExpr:
		sb.WriteString("*")
		showExprWalker(sb, expr.Value)
	default:
		fmt.Fprintf(sb, "<%T>", expr)
	}
}
